package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ticket-checkout/clients"
	"ticket-checkout/entity"
	"ticket-checkout/service"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ClaimRequest struct {
	FullName   string          `json:"fullname"`
	Email      string          `json:"email"`
	ZapReceipt json.RawMessage `json:"zapReceipt"`
}

// FakeOrdersAPI serves the order backend endpoints. Every order gets
// the reference id "abc".
type FakeOrdersAPI struct {
	lock   sync.Mutex
	Claims []ClaimRequest
}

func (f *FakeOrdersAPI) claims() []ClaimRequest {
	f.lock.Lock()
	defer f.lock.Unlock()

	return append([]ClaimRequest(nil), f.Claims...)
}

func (f *FakeOrdersAPI) start(t *testing.T) string {
	t.Helper()

	e := echo.New()
	e.POST("/orders/request", func(c echo.Context) error {
		var req struct {
			Quantity int `json:"qty"`
		}
		if err := c.Bind(&req); err != nil {
			return err
		}

		return c.JSON(http.StatusOK, map[string]string{
			"pr":               "lnbc" + strings.Repeat("1", req.Quantity),
			"orderReferenceId": "abc",
		})
	})
	e.POST("/orders/claim", func(c echo.Context) error {
		var req ClaimRequest
		if err := c.Bind(&req); err != nil {
			return err
		}

		f.lock.Lock()
		f.Claims = append(f.Claims, req)
		f.lock.Unlock()

		return c.JSON(http.StatusOK, map[string]bool{"claim": true})
	})

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return server.URL
}

type testService struct {
	baseURL string
	pubSub  *gochannel.GoChannel
}

func startService(t *testing.T, ordersAPI *FakeOrdersAPI) testService {
	t.Helper()

	logger := watermill.NopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, logger)
	t.Cleanup(func() {
		_ = pubSub.Close()
	})

	svc, err := service.New(service.Deps{
		Logger:     logger,
		Publisher:  pubSub,
		Subscriber: pubSub,
		Gateway:    clients.NewOrdersClient(ordersAPI.start(t)),
		Ticket: entity.Ticket{
			Title:    "Cowork",
			Price:    500,
			Currency: entity.CurrencySAT,
		},
		OrderTimeout: 5 * time.Second,
		ClaimTimeout: 5 * time.Second,
		HTTPAddr:     "127.0.0.1:0",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		<-done
	})

	go func() {
		defer close(done)
		assert.NoError(t, svc.Run(ctx))
	}()

	require.EventuallyWithT(t, func(t *assert.CollectT) {
		assert.NotNil(t, svc.Addr())
	}, 10*time.Second, 50*time.Millisecond)

	s := testService{
		baseURL: "http://" + svc.Addr().String(),
		pubSub:  pubSub,
	}
	s.waitForHttpServer(t)

	return s
}

func (s testService) waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(s.baseURL + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode)
		},
		time.Second*10,
		time.Millisecond*50,
	)
}

func (s testService) send(t *testing.T, method, path string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, s.baseURL+path, bytes.NewBuffer(body))
	require.NoError(t, err)

	req.Header.Set("Correlation-ID", shortuuid.New())
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})

	return resp
}

type CheckoutView struct {
	Screen           string `json:"screen"`
	Quantity         int    `json:"qty"`
	PaymentRequest   string `json:"payment_request"`
	OrderReferenceID string `json:"order_reference_id"`
	Paid             bool   `json:"paid"`
	Total            struct {
		Amount  int64  `json:"amount"`
		Display string `json:"display"`
	} `json:"total"`
}

func (s testService) getCheckout(t assert.TestingT) (CheckoutView, bool) {
	var view CheckoutView

	resp, err := http.Get(s.baseURL + "/checkout")
	if !assert.NoError(t, err) {
		return view, false
	}
	defer resp.Body.Close()

	if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
		return view, false
	}

	return view, assert.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
}

func (s testService) waitForScreen(t *testing.T, screen string) CheckoutView {
	t.Helper()

	var view CheckoutView
	require.EventuallyWithT(
		t,
		func(collectT *assert.CollectT) {
			v, ok := s.getCheckout(collectT)
			if !ok {
				return
			}
			view = v
			assert.Equal(collectT, screen, v.Screen)
		},
		10*time.Second,
		50*time.Millisecond,
	)

	return view
}

func zapReceipt(t *testing.T, id, referenceID string) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":         strings.Repeat(id, 64/len(id)),
		"pubkey":     strings.Repeat("cd", 32),
		"created_at": time.Now().Unix(),
		"kind":       9735,
		"tags":       [][]string{{"e", referenceID}, {"bolt11", "lnbc111"}},
		"content":    "",
		"sig":        strings.Repeat("ef", 64),
	})
	require.NoError(t, err)

	return payload
}
