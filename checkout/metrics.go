package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersRequested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "orders_requested_total",
		Help:      "Order requests sent to the ordering backend, by result.",
	}, []string{"result"})

	paymentsClaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "payments_claimed_total",
		Help:      "Payment claims sent to the ordering backend, by result.",
	}, []string{"result"})

	confirmationsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "confirmations_ignored_total",
		Help:      "Confirmation events that did not cause a transition.",
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
