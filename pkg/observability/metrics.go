// Package observability provides Prometheus metrics for the request
// lifecycle of a transport.Stack.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestBuckets defines histogram buckets for request durations, ranging
// from 5ms to 60s. Streamed responses can stay open for a long time.
var RequestBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics holds the lifecycle collectors. Create it with NewMetrics and
// attach it to a stack with Instrument.
type Metrics struct {
	// Requests counts constructed requests by method.
	Requests *prometheus.CounterVec

	// Responses counts validated responses by method and status code.
	Responses *prometheus.CounterVec

	// Failures counts failed requests by error kind.
	Failures *prometheus.CounterVec

	// Cancellations counts responses whose write was cancelled.
	Cancellations prometheus.Counter

	// StreamingFailures counts response stream failures by type: "stream"
	// for a failing stream, "observation" when the error observer could
	// not be attached.
	StreamingFailures *prometheus.CounterVec

	// Duration records the time from arrival to settlement by method.
	Duration *prometheus.HistogramVec

	// Streaming tracks responses whose stream is being piped.
	Streaming prometheus.Gauge

	reg prometheus.Registerer
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered by an earlier call are reused, so several stacks can
// share the default registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{reg: reg}

	var err error
	if m.Requests, err = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helo_requests_total",
			Help: "Constructed requests",
		},
		[]string{"method"},
	)); err != nil {
		return nil, err
	}
	if m.Responses, err = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helo_responses_total",
			Help: "Validated responses",
		},
		[]string{"method", "status"},
	)); err != nil {
		return nil, err
	}
	if m.Failures, err = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helo_request_failures_total",
			Help: "Failed requests",
		},
		[]string{"kind"},
	)); err != nil {
		return nil, err
	}
	if m.Cancellations, err = register(reg, prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "helo_response_cancellations_total",
			Help: "Cancelled response writes",
		},
	)); err != nil {
		return nil, err
	}
	if m.StreamingFailures, err = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helo_streaming_failures_total",
			Help: "Response stream failures",
		},
		[]string{"type"},
	)); err != nil {
		return nil, err
	}
	if m.Duration, err = register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helo_request_duration_seconds",
			Help:    "Request duration",
			Buckets: RequestBuckets,
		},
		[]string{"method"},
	)); err != nil {
		return nil, err
	}
	if m.Streaming, err = register(reg, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "helo_streaming_responses_active",
			Help: "Active streamed responses",
		},
	)); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, returning the existing collector if an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}
