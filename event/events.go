package event

import (
	"time"

	"github.com/google/uuid"
)

type header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func newHeader(idempotencyKey string) header {
	return header{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type OrderCreated struct {
	Header         header `json:"header"`
	ReferenceID    string `json:"order_reference_id"`
	PaymentRequest string `json:"payment_request"`
	Quantity       int    `json:"qty"`
	Total          Money  `json:"total"`
	CustomerEmail  string `json:"customer_email"`
}

// NewOrderCreated uses the order reference id as idempotency key, the
// backend never issues the same one twice.
func NewOrderCreated(referenceID, paymentRequest string, qty int, total Money, customerEmail string) OrderCreated {
	return OrderCreated{
		Header:         newHeader(referenceID),
		ReferenceID:    referenceID,
		PaymentRequest: paymentRequest,
		Quantity:       qty,
		Total:          total,
		CustomerEmail:  customerEmail,
	}
}

type PaymentClaimed struct {
	Header         header `json:"header"`
	ReferenceID    string `json:"order_reference_id"`
	ConfirmationID string `json:"confirmation_id"`
	Quantity       int    `json:"qty"`
	Total          Money  `json:"total"`
	CustomerEmail  string `json:"customer_email"`
}

func NewPaymentClaimed(referenceID, confirmationID string, qty int, total Money, customerEmail string) PaymentClaimed {
	return PaymentClaimed{
		Header:         newHeader(confirmationID),
		ReferenceID:    referenceID,
		ConfirmationID: confirmationID,
		Quantity:       qty,
		Total:          total,
		CustomerEmail:  customerEmail,
	}
}
