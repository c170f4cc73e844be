package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/transport"
)

// Instrument registers the lifecycle metrics with the default registry and
// attaches them to s. The returned function detaches them again.
func Instrument(s *transport.Stack) (func(), error) {
	m, err := NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return m.Instrument(s)
}

// Instrument subscribes m to every notification of s and registers the
// helo_active_operations gauge, which reads the size of the stack's active
// set at scrape time. The returned function unsubscribes and unregisters
// the gauge.
func (m *Metrics) Instrument(s *transport.Stack) (func(), error) {
	active := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "helo_active_operations",
			Help: "In-flight requests",
		},
		func() float64 { return float64(s.Active()) },
	)
	if err := m.reg.Register(active); err != nil {
		return nil, err
	}

	// streams holds the states whose stream was counted in m.Streaming.
	var streams sync.Map

	settle := func(ev transport.Event) {
		if _, ok := streams.LoadAndDelete(ev.State); ok {
			m.Streaming.Dec()
		}
		m.Duration.WithLabelValues(ev.State.Method()).Observe(time.Since(ev.State.StartedAt).Seconds())
	}

	stops := []func(){
		s.On(transport.EventRequest, func(ev transport.Event) {
			m.Requests.WithLabelValues(ev.State.Method()).Inc()
		}),
		s.On(transport.EventResponse, func(ev transport.Event) {
			resp := ev.State.Response
			m.Responses.WithLabelValues(ev.State.Method(), strconv.Itoa(resp.Status())).Inc()
			if resp.Stream != nil {
				streams.Store(ev.State, struct{}{})
				m.Streaming.Inc()
			}
		}),
		s.On(transport.EventResponseFinish, settle),
		s.On(transport.EventResponseCancel, func(transport.Event) {
			m.Cancellations.Inc()
		}),
		s.On(transport.EventStreamingError, func(transport.Event) {
			m.StreamingFailures.WithLabelValues("stream").Inc()
		}),
		s.On(transport.EventStreamObservationFailed, func(transport.Event) {
			m.StreamingFailures.WithLabelValues("observation").Inc()
		}),
	}
	for _, kind := range []transport.EventKind{
		transport.EventCancelError,
		transport.EventTimeoutError,
		transport.EventInternalError,
	} {
		stops = append(stops, s.On(kind, func(ev transport.Event) {
			m.Failures.WithLabelValues(api.KindOf(ev.Err).String()).Inc()
			settle(ev)
		}))
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
		m.reg.Unregister(active)
	}, nil
}
