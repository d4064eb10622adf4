package http

import (
	"ticket-checkout/checkout"
	"ticket-checkout/entity"

	"github.com/samber/lo"
)

const (
	alertTitle  = "Oops! Try again"
	alertAction = "Reload"
)

type amountView struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

func newAmountView(amount int64, currency string) amountView {
	return amountView{
		Amount:   amount,
		Currency: currency,
		Display:  entity.FormatAmount(amount, currency),
	}
}

type ticketView struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Price       amountView `json:"price"`
}

func newTicketView(t entity.Ticket) ticketView {
	return ticketView{
		Title:       t.Title,
		Description: t.Description,
		ImageURL:    t.ImageURL,
		Price:       newAmountView(t.Price, t.Currency),
	}
}

type breadcrumbView struct {
	Screen string `json:"screen"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

type alertView struct {
	Open   bool   `json:"open"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Action string `json:"action"`
}

type checkoutView struct {
	Screen           string           `json:"screen"`
	Breadcrumbs      []breadcrumbView `json:"breadcrumbs"`
	Ticket           ticketView       `json:"ticket"`
	Quantity         int              `json:"qty"`
	Total            amountView       `json:"total"`
	PaymentRequest   string           `json:"payment_request,omitempty"`
	OrderReferenceID string           `json:"order_reference_id,omitempty"`
	Paid             bool             `json:"paid"`
	Pending          bool             `json:"pending"`
	Alert            alertView        `json:"alert"`
}

func newCheckoutView(t entity.Ticket, s checkout.State) checkoutView {
	return checkoutView{
		Screen: string(s.Screen),
		Breadcrumbs: lo.Map(entity.Screens, func(screen entity.Screen, _ int) breadcrumbView {
			return breadcrumbView{
				Screen: string(screen),
				Label:  screen.Label(),
				Active: screen == s.Screen,
			}
		}),
		Ticket:           newTicketView(t),
		Quantity:         s.Quantity,
		Total:            newAmountView(s.Total, t.Currency),
		PaymentRequest:   s.PaymentRequest(),
		OrderReferenceID: s.ReferenceID(),
		Paid:             s.Paid,
		Pending:          s.Pending(),
		Alert: alertView{
			Open:   s.Alert.Open,
			Title:  alertTitle,
			Text:   s.Alert.Text,
			Action: alertAction,
		},
	}
}
