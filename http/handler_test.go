package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ticket-checkout/checkout"
	"ticket-checkout/entity"
	checkoutHTTP "ticket-checkout/http"
	"ticket-checkout/message"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ticket = entity.Ticket{
	Title:       "Cowork",
	Description: "From 10:00 to 20:00",
	ImageURL:    "https://placehold.co/400",
	Price:       500,
	Currency:    entity.CurrencySAT,
}

type stubGateway struct {
	order entity.Order
	err   error
}

func (g stubGateway) RequestOrder(context.Context, entity.OrderDraft) (entity.Order, error) {
	return g.order, g.err
}

func (g stubGateway) ClaimPayment(context.Context, entity.CustomerData, entity.PaymentConfirmation) error {
	return nil
}

type amount struct {
	Amount  int64  `json:"amount"`
	Display string `json:"display"`
}

type checkoutResponse struct {
	Screen      string `json:"screen"`
	Breadcrumbs []struct {
		Screen string `json:"screen"`
		Label  string `json:"label"`
		Active bool   `json:"active"`
	} `json:"breadcrumbs"`
	Quantity         int    `json:"qty"`
	Total            amount `json:"total"`
	PaymentRequest   string `json:"payment_request"`
	OrderReferenceID string `json:"order_reference_id"`
	Pending          bool   `json:"pending"`
	Alert            struct {
		Open   bool   `json:"open"`
		Title  string `json:"title"`
		Text   string `json:"text"`
		Action string `json:"action"`
	} `json:"alert"`
}

type fixture struct {
	server *echo.Echo
	pubSub *gochannel.GoChannel
}

func newFixture(t *testing.T, gateway checkout.OrderGateway) fixture {
	t.Helper()

	dispatcher := message.NewDispatcher()
	t.Cleanup(func() {
		_ = dispatcher.Close()
	})

	controller, err := checkout.NewController(checkout.Deps{
		Ticket:      ticket,
		Gateway:     gateway,
		EventSource: dispatcher,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		assert.NoError(t, controller.Run(ctx))
	}()
	<-controller.Running()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() {
		_ = pubSub.Close()
	})

	return fixture{
		server: checkoutHTTP.NewRouter(controller, pubSub),
		pubSub: pubSub,
	}
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	return rec
}

func (f fixture) checkout(t *testing.T, method, path, body string, expectedStatus int) checkoutResponse {
	t.Helper()

	rec := f.do(method, path, body)
	require.Equal(t, expectedStatus, rec.Code, rec.Body.String())

	var res checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	return res
}

func TestGetTicket(t *testing.T) {
	f := newFixture(t, stubGateway{})

	rec := f.do(http.MethodGet, "/ticket", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Title string `json:"title"`
		Price amount `json:"price"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Cowork", res.Title)
	assert.Equal(t, amount{Amount: 500, Display: "500 SAT"}, res.Price)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, stubGateway{})

	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckout(t *testing.T) {
	f := newFixture(t, stubGateway{
		order: entity.Order{ReferenceID: "abc", PaymentRequest: "lnbc15u1..."},
	})

	res := f.checkout(t, http.MethodGet, "/checkout", "", http.StatusOK)
	assert.Equal(t, "information", res.Screen)
	require.Len(t, res.Breadcrumbs, 3)
	assert.Equal(t, "Information", res.Breadcrumbs[0].Label)
	assert.True(t, res.Breadcrumbs[0].Active)
	assert.False(t, res.Breadcrumbs[1].Active)
	assert.Equal(t, "Oops! Try again", res.Alert.Title)
	assert.Equal(t, "Reload", res.Alert.Action)

	f.checkout(t, http.MethodPost, "/checkout/quantity/increment", "", http.StatusOK)
	res = f.checkout(t, http.MethodPost, "/checkout/quantity/increment", "", http.StatusOK)
	assert.Equal(t, 3, res.Quantity)
	assert.Equal(t, amount{Amount: 1500, Display: "1500 SAT"}, res.Total)

	res = f.checkout(t, http.MethodPut, "/checkout/quantity", `{"qty": 2}`, http.StatusOK)
	assert.Equal(t, 2, res.Quantity)
	assert.Equal(t, int64(1000), res.Total.Amount)

	rec := f.do(http.MethodPut, "/checkout/quantity", `{"qty": 10001}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	res = f.checkout(t, http.MethodGet, "/checkout", "", http.StatusOK)
	assert.Equal(t, 2, res.Quantity)

	rec = f.do(http.MethodPost, "/checkout/customer", `{"fullname": "", "email": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	res = f.checkout(t, http.MethodPost, "/checkout/customer", `{"fullname": "Satoshi", "email": "satoshi@example.com"}`, http.StatusAccepted)
	assert.Equal(t, "information", res.Screen)

	require.EventuallyWithT(t, func(t *assert.CollectT) {
		rec := f.do(http.MethodGet, "/checkout", "")
		var res checkoutResponse
		if !assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res)) {
			return
		}
		assert.Equal(t, "payment", res.Screen)
		assert.Equal(t, "abc", res.OrderReferenceID)
		assert.Equal(t, "lnbc15u1...", res.PaymentRequest)
	}, 5*time.Second, 10*time.Millisecond)

	rec = f.do(http.MethodPost, "/checkout/quantity/increment", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodPost, "/checkout/customer", `{"fullname": "Satoshi", "email": "satoshi@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	res = f.checkout(t, http.MethodPost, "/checkout/reset", "", http.StatusOK)
	assert.Equal(t, "information", res.Screen)
	assert.Equal(t, 1, res.Quantity)
	assert.Empty(t, res.OrderReferenceID)
}

func TestCheckout_alert(t *testing.T) {
	f := newFixture(t, stubGateway{err: errors.New("network down")})

	f.checkout(t, http.MethodPost, "/checkout/customer", `{"fullname": "Satoshi", "email": "satoshi@example.com"}`, http.StatusAccepted)

	require.EventuallyWithT(t, func(t *assert.CollectT) {
		rec := f.do(http.MethodGet, "/checkout", "")
		var res checkoutResponse
		if !assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res)) {
			return
		}
		assert.True(t, res.Alert.Open)
		assert.Equal(t, "network down", res.Alert.Text)
		assert.False(t, res.Pending)
	}, 5*time.Second, 10*time.Millisecond)

	res := f.checkout(t, http.MethodPost, "/checkout/alert/close", "", http.StatusOK)
	assert.False(t, res.Alert.Open)
	assert.Equal(t, "information", res.Screen)

	rec := f.do(http.MethodPost, "/checkout/alert/close", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPostZapReceipt(t *testing.T) {
	f := newFixture(t, stubGateway{})

	messages, err := f.pubSub.Subscribe(context.Background(), message.TopicZapReceipts)
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/zap-receipts", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/zap-receipts", strings.NewReader(`{"kind":9735}`))
	req.Header.Set("Correlation-ID", "corr-1")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case msg := <-messages:
		msg.Ack()
		assert.JSONEq(t, `{"kind":9735}`, string(msg.Payload))
		assert.Equal(t, "corr-1", middleware.MessageCorrelationID(msg))
	case <-time.After(5 * time.Second):
		t.Fatal("zap receipt was not published")
	}
}
