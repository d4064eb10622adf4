package entity

import "time"

// PaymentConfirmation is a settled-payment event correlated to an order.
type PaymentConfirmation struct {
	ID          string     `json:"id"`
	Kind        int        `json:"kind"`
	PubKey      string     `json:"pubkey"`
	CreatedAt   time.Time  `json:"created_at"`
	Tags        [][]string `json:"tags"`
	Content     string     `json:"content"`
	Sig         string     `json:"sig"`
	ReferenceID string     `json:"-"`

	// Raw is the event exactly as received, forwarded untouched when claiming.
	Raw []byte `json:"-"`
}
