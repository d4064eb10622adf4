package zap

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"ticket-checkout/entity"

	"github.com/samber/lo"
)

const (
	KindZapReceipt = 9735

	tagEvent  = "e"
	tagBolt11 = "bolt11"
)

type MalformedEventError struct {
	Reason string
}

func (e MalformedEventError) Error() string {
	return fmt.Sprintf("malformed zap receipt: %s", e.Reason)
}

func (e MalformedEventError) Malformed() bool {
	return true
}

type rawEvent struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// ConvertEvent turns a raw zap receipt into a PaymentConfirmation. The
// reference id is the value of the first "e" tag. Signatures are not
// checked here.
func ConvertEvent(payload []byte) (entity.PaymentConfirmation, error) {
	var e rawEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		return entity.PaymentConfirmation{}, MalformedEventError{Reason: fmt.Sprintf("decoding json: %s", err)}
	}

	if e.Kind != KindZapReceipt {
		return entity.PaymentConfirmation{}, MalformedEventError{Reason: fmt.Sprintf("unexpected kind %d", e.Kind)}
	}

	if _, err := hex.DecodeString(e.ID); err != nil || len(e.ID) != 64 {
		return entity.PaymentConfirmation{}, MalformedEventError{Reason: "id is not a 32 byte hex string"}
	}

	referenceID, ok := TagValue(e.Tags, tagEvent)
	if !ok || referenceID == "" {
		return entity.PaymentConfirmation{}, MalformedEventError{Reason: "missing e tag"}
	}

	return entity.PaymentConfirmation{
		ID:          e.ID,
		Kind:        e.Kind,
		PubKey:      e.PubKey,
		CreatedAt:   time.Unix(e.CreatedAt, 0).UTC(),
		Tags:        e.Tags,
		Content:     e.Content,
		Sig:         e.Sig,
		ReferenceID: referenceID,
		Raw:         payload,
	}, nil
}

// TagValue returns the first value of the tag with the given name.
func TagValue(tags [][]string, name string) (string, bool) {
	tag, ok := lo.Find(tags, func(tag []string) bool {
		return len(tag) >= 2 && tag[0] == name
	})
	if !ok {
		return "", false
	}

	return tag[1], true
}

func Invoice(c entity.PaymentConfirmation) string {
	invoice, _ := TagValue(c.Tags, tagBolt11)
	return invoice
}

// Encode returns the receipt in its wire form, preferring the bytes it was
// received as.
func Encode(c entity.PaymentConfirmation) ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}

	return json.Marshal(rawEvent{
		ID:        c.ID,
		PubKey:    c.PubKey,
		CreatedAt: c.CreatedAt.Unix(),
		Kind:      c.Kind,
		Tags:      c.Tags,
		Content:   c.Content,
		Sig:       c.Sig,
	})
}
