// Package metrics holds the Prometheus collectors shared by the bot runtime
// and the HTTP server that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "fanrelay"

var (
	// Registry is the collector registry served on /metrics.
	Registry = prometheus.NewRegistry()

	handledUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handled_updates_total",
		Help:      "Telegram updates processed, by handler and outcome.",
	}, []string{"handler", "outcome"})

	deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Outbound relay messages, by kind and result.",
	}, []string{"kind", "result"})

	senderFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sender_failures_total",
		Help:      "Telegram API calls that failed after retries, by error kind.",
	}, []string{"error_kind"})
)

func init() {
	Registry.MustRegister(
		handledUpdates,
		deliveries,
		senderFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveHandled counts one routed update.
func ObserveHandled(handler, outcome string) {
	handledUpdates.WithLabelValues(handler, outcome).Inc()
}

// HandledCounter exposes the counter behind ObserveHandled for the given labels.
func HandledCounter(handler, outcome string) prometheus.Counter {
	return handledUpdates.WithLabelValues(handler, outcome)
}

// ObserveDelivery counts one outbound message of the given kind (reply, relay, broadcast, reminder...).
func ObserveDelivery(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "fail"
	}
	deliveries.WithLabelValues(kind, result).Inc()
}

// ObserveSenderFailure counts a Telegram call that exhausted its retries.
func ObserveSenderFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	senderFailures.WithLabelValues(kind).Inc()
}
