package message

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	dropReasonMalformed = "malformed"
	dropReasonUnmatched = "unmatched"
)

var confirmationsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "checkout",
	Name:      "confirmations_dropped_total",
	Help:      "Zap receipts that were not delivered to any payment subscription.",
}, []string{"reason"})
