package entity

import "fmt"

const CurrencySAT = "SAT"

type Ticket struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
}

// Total is the price of qty tickets in the smallest currency unit.
func (t Ticket) Total(qty int) int64 {
	return OrderDraft{Quantity: qty}.Total(t.Price)
}

func FormatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%d %s", amount, currency)
}
