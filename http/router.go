package http

import (
	"net/http"

	"ticket-checkout/observability"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

var ErrServerClosed = http.ErrServerClosed

func NewRouter(controller Controller, publisher Publisher) *echo.Echo {
	server := commonHTTP.NewEcho()

	server.Use(otelecho.Middleware(observability.ServiceName))

	server.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	server.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler := handler{
		controller: controller,
		publisher:  publisher,
	}

	server.GET("/ticket", handler.GetTicket)
	server.GET("/checkout", handler.GetCheckout)
	server.POST("/checkout/quantity/increment", handler.PostIncrement)
	server.POST("/checkout/quantity/decrement", handler.PostDecrement)
	server.PUT("/checkout/quantity", handler.PutQuantity)
	server.POST("/checkout/customer", handler.PostCustomer)
	server.POST("/checkout/reset", handler.PostReset)
	server.POST("/checkout/alert/close", handler.PostCloseAlert)
	server.POST("/zap-receipts", handler.PostZapReceipt)

	return server
}
