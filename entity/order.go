package entity

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CustomerData struct {
	FullName string `json:"fullname" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

func (c CustomerData) Validate() error {
	return validate.Struct(c)
}

// OrderDraft is what the customer asks for before the backend assigns an
// order reference id.
type OrderDraft struct {
	Quantity int          `json:"qty"`
	Customer CustomerData `json:"customer"`
}

func (d OrderDraft) Total(unitPrice int64) int64 {
	return int64(d.Quantity) * unitPrice
}

type Order struct {
	ReferenceID    string `json:"order_reference_id"`
	PaymentRequest string `json:"payment_request"`
}
