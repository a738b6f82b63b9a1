// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_settlements_total",
			Help: "Settlement attempts by rail and outcome",
		},
		[]string{"method", "outcome"},
	)

	SettlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partner_settlement_duration_seconds",
			Help:    "Duration of one partner settlement",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"method"},
	)

	PayoutAmountCents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_payout_amount_cents_total",
			Help: "Net cents handed to each rail",
		},
		[]string{"method"},
	)

	StreamEntriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_entries_processed_total",
			Help: "Redis stream entries applied and deleted",
		},
		[]string{"stream", "result"},
	)

	CleanupSideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_side_effect_failures_total",
			Help: "Best-effort cleanup steps that failed after commit",
		},
		[]string{"operation", "target"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method"},
	)
)
