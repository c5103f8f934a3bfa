// Package metrics holds the Prometheus collectors of the bot and serves
// them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "settlebot"

// Registry holds every collector of this package plus the Go runtime ones.
var Registry = prometheus.NewRegistry()

var (
	// Events counts handled chat events.
	Events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Chat events handled, by stage, kind and outcome.",
	}, []string{"stage", "kind", "outcome"})

	// EventDuration observes how long handling an event took.
	EventDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_duration_seconds",
		Help:      "Time spent handling a chat event.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	// Settlements counts statements delivered.
	Settlements = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Teams settled and dissolved.",
	})

	// Receipts counts receipt recognition attempts by result.
	Receipts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "receipts_total",
		Help:      "Receipt recognition attempts, by result.",
	}, []string{"result"})

	// SendFailures counts outbound messages the transport rejected.
	SendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "send_failures_total",
		Help:      "Outbound messages that failed, by operation.",
	}, []string{"op"})
)

// Receipt result labels.
const (
	ReceiptOK          = "ok"
	ReceiptFailed      = "failed"
	ReceiptUnavailable = "unavailable"
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Events,
		EventDuration,
		Settlements,
		Receipts,
		SendFailures,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
