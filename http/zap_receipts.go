package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ticket-checkout/message"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v3"
)

// PostZapReceipt forwards a raw zap receipt to the zap receipts topic. Only
// JSON well-formedness is checked here.
func (h handler) PostZapReceipt(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "failed to read request",
			Internal: fmt.Errorf("reading body: %w", err),
		}
	}

	if !json.Valid(payload) {
		return echo.NewHTTPError(http.StatusBadRequest, "zap receipt must be a JSON object")
	}

	correlationID := c.Request().Header.Get(headerKeyCorrelationID)
	if correlationID == "" {
		correlationID = "gen_" + shortuuid.New()
	}

	msg := message.NewZapReceipt(payload, correlationID)
	msg.SetContext(c.Request().Context())

	topic := message.TopicZapReceipts
	if err := h.publisher.Publish(topic, msg); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusInternalServerError,
			Message:  http.StatusText(http.StatusInternalServerError),
			Internal: fmt.Errorf("publishing message to topic '%s': %w", topic, err),
		}
	}

	return c.NoContent(http.StatusAccepted)
}
