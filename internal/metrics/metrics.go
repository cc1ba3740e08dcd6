// Package metrics holds the Prometheus collectors shared by the client, the
// host bridge and the dev server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for ClientRequestsTotal.
const (
	OutcomeSuccess       = "success"
	OutcomeAPIError      = "api_error"
	OutcomeNetworkError  = "network_error"
	OutcomeTimeout       = "timeout"
	OutcomeParseError    = "parse_error"
	OutcomeRequestError  = "request_error"
	OutcomeNotConfigured = "not_configured"
)

var (
	ClientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redirectly_client_requests_total",
		Help: "API requests issued by the client, by outcome.",
	}, []string{"method", "outcome"})

	ClientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redirectly_client_request_duration_seconds",
		Help:    "Time from request start to a fully read response.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method"})

	LinksResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redirectly_links_resolved_total",
		Help: "Deep links classified, by result (ok, invalidFormat, unrecognizedFormat).",
	}, []string{"result"})

	LinkEventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redirectly_link_events_dropped_total",
		Help: "Link events not delivered because a subscriber was not keeping up.",
	})

	BridgeCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redirectly_bridge_calls_total",
		Help: "Host method calls handled by the bridge, by method and result code.",
	}, []string{"method", "code"})

	DevRedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redirectly_devserver_redirects_total",
		Help: "Dev server link resolution attempts.",
	}, []string{"status"})
)
