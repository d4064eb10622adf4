package message

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// NewZapReceipt wraps a raw zap receipt for the zap receipts topic. The
// payload is forwarded untouched, validation happens on consumption.
func NewZapReceipt(payload []byte, correlationID string) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if correlationID != "" {
		middleware.SetCorrelationID(correlationID, msg)
	}
	msg.Metadata.Set("type", "ZapReceipt")

	return msg
}
