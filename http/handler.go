package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ticket-checkout/checkout"
	"ticket-checkout/entity"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/labstack/echo/v4"
)

const headerKeyCorrelationID = "Correlation-ID"

type Controller interface {
	Ticket() entity.Ticket
	State(ctx context.Context) (checkout.State, error)
	Increment(ctx context.Context) (checkout.ActionResult, error)
	Decrement(ctx context.Context) (checkout.ActionResult, error)
	SetQuantity(ctx context.Context, qty int) (checkout.ActionResult, error)
	Submit(ctx context.Context, customer entity.CustomerData) (checkout.ActionResult, error)
	Reset(ctx context.Context) (checkout.ActionResult, error)
	CloseAlert(ctx context.Context) (checkout.ActionResult, error)
}

type Publisher interface {
	Publish(topic string, messages ...*message.Message) error
}

type handler struct {
	controller Controller
	publisher  Publisher
}

func (h handler) GetTicket(c echo.Context) error {
	return c.JSON(http.StatusOK, newTicketView(h.controller.Ticket()))
}

func (h handler) GetCheckout(c echo.Context) error {
	s, err := h.controller.State(c.Request().Context())
	if err != nil {
		return controllerError(err)
	}

	return c.JSON(http.StatusOK, newCheckoutView(h.controller.Ticket(), s))
}

func (h handler) PostIncrement(c echo.Context) error {
	res, err := h.controller.Increment(c.Request().Context())
	return h.respond(c, http.StatusOK, res, err)
}

func (h handler) PostDecrement(c echo.Context) error {
	res, err := h.controller.Decrement(c.Request().Context())
	return h.respond(c, http.StatusOK, res, err)
}

type quantityRequest struct {
	Quantity int `json:"qty"`
}

func (h handler) PutQuantity(c echo.Context) error {
	var request quantityRequest
	if err := c.Bind(&request); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "failed to parse request",
			Internal: fmt.Errorf("failed to bind request: %w", err),
		}
	}

	res, err := h.controller.SetQuantity(c.Request().Context(), request.Quantity)
	return h.respond(c, http.StatusOK, res, err)
}

func (h handler) PostCustomer(c echo.Context) error {
	var customer entity.CustomerData
	if err := c.Bind(&customer); err != nil {
		return &echo.HTTPError{
			Code:     http.StatusBadRequest,
			Message:  "failed to parse request",
			Internal: fmt.Errorf("failed to bind request: %w", err),
		}
	}

	if err := customer.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.controller.Submit(c.Request().Context(), customer)
	return h.respond(c, http.StatusAccepted, res, err)
}

func (h handler) PostReset(c echo.Context) error {
	res, err := h.controller.Reset(c.Request().Context())
	return h.respond(c, http.StatusOK, res, err)
}

func (h handler) PostCloseAlert(c echo.Context) error {
	res, err := h.controller.CloseAlert(c.Request().Context())
	return h.respond(c, http.StatusOK, res, err)
}

// respond renders the state after an action. Ignored actions are a
// conflict with the current state, not a failure.
func (h handler) respond(c echo.Context, status int, res checkout.ActionResult, err error) error {
	if err != nil {
		return controllerError(err)
	}

	if !res.Accepted() {
		return echo.NewHTTPError(http.StatusConflict, res.Ignored)
	}

	return c.JSON(status, newCheckoutView(h.controller.Ticket(), res.State))
}

func controllerError(err error) error {
	if errors.Is(err, checkout.ErrStopped) {
		return &echo.HTTPError{
			Code:     http.StatusServiceUnavailable,
			Message:  http.StatusText(http.StatusServiceUnavailable),
			Internal: err,
		}
	}

	return &echo.HTTPError{
		Code:     http.StatusInternalServerError,
		Message:  http.StatusText(http.StatusInternalServerError),
		Internal: err,
	}
}
