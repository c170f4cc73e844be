package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/helo/pkg/api"
)

var errMessageDone = errors.New("message already ended or destroyed")

// recordingMessage is an in-memory OutgoingMessage that records every call.
type recordingMessage struct {
	mu         sync.Mutex
	header     http.Header
	status     int
	headSent   bool
	body       bytes.Buffer
	calls      []string
	ended      bool
	destroyed  bool
	destroyErr error
	writes     chan struct{}

	finishOnce sync.Once
	closeOnce  sync.Once
	finished   chan struct{}
	closed     chan struct{}
}

func newRecordingMessage() *recordingMessage {
	return &recordingMessage{
		header:   make(http.Header),
		writes:   make(chan struct{}, 64),
		finished: make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

func (m *recordingMessage) SetHeader(name string, values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.header[http.CanonicalHeaderKey(name)] = values
	m.calls = append(m.calls, "setHeader "+name)
}

func (m *recordingMessage) WriteHead(statusCode int, headers *api.Headers) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.headSent || m.ended || m.destroyed {
		return errMessageDone
	}
	m.writeHeadLocked(statusCode, headers)
	return nil
}

func (m *recordingMessage) writeHeadLocked(statusCode int, headers *api.Headers) {
	m.status = statusCode
	if headers != nil {
		headers.Each(func(name string, value any) {
			values, _ := api.HeaderStrings(value)
			m.header[http.CanonicalHeaderKey(name)] = values
		})
	}
	m.headSent = true
	m.calls = append(m.calls, fmt.Sprintf("writeHead %d", statusCode))
}

func (m *recordingMessage) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ended || m.destroyed {
		return 0, errMessageDone
	}
	if !m.headSent {
		m.writeHeadLocked(http.StatusOK, nil)
	}
	m.body.Write(p)
	m.calls = append(m.calls, "write")
	select {
	case m.writes <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (m *recordingMessage) End(chunk []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ended || m.destroyed {
		return errMessageDone
	}
	if !m.headSent {
		m.writeHeadLocked(http.StatusOK, nil)
	}
	m.body.Write(chunk)
	m.ended = true
	m.calls = append(m.calls, "end")
	m.finishOnce.Do(func() { close(m.finished) })
	return nil
}

func (m *recordingMessage) Destroy(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.destroyErr = err
	m.calls = append(m.calls, "destroy")
}

func (m *recordingMessage) HeadersSent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headSent
}

func (m *recordingMessage) Finished() <-chan struct{} { return m.finished }

func (m *recordingMessage) Closed() <-chan struct{} { return m.closed }

// disconnect simulates the client going away.
func (m *recordingMessage) disconnect() {
	m.closeOnce.Do(func() { close(m.closed) })
}

func (m *recordingMessage) snapshot() (calls []string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...), m.status, m.body.String()
}

// fakeListener hands requests to the stack synchronously.
type fakeListener struct {
	fn func(in *IncomingMessage, out OutgoingMessage)
}

func (l *fakeListener) OnRequest(fn func(in *IncomingMessage, out OutgoingMessage)) {
	l.fn = fn
}

// newFinalizedStack builds a stack with the given middleware around h.
func newFinalizedStack(t *testing.T, h Handler, mws ...Middleware) *Stack {
	t.Helper()
	s := New()
	for _, mw := range mws {
		if err := s.AddMiddleware(mw); err != nil {
			t.Fatalf("AddMiddleware: %v", err)
		}
	}
	if err := s.Finalize(h); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return s
}

// handle runs one request through s and returns the recorded message.
func handle(t *testing.T, s *Stack, method, url string) *recordingMessage {
	t.Helper()
	out := newRecordingMessage()
	s.Handle(&IncomingMessage{Method: method, Header: http.Header{}, URL: url}, out)
	return out
}

// handleAsync starts one request and returns a channel closed when it settles.
func handleAsync(s *Stack, method, url string, out *recordingMessage) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Handle(&IncomingMessage{Method: method, Header: http.Header{}, URL: url}, out)
	}()
	return done
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// eventRecorder collects notifications of every kind.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func recordEvents(s *Stack) *eventRecorder {
	r := &eventRecorder{}
	for _, kind := range EventKinds {
		s.On(kind, func(ev Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
		})
	}
	return r
}

func (r *eventRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *eventRecorder) find(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

// respond returns a handler that always responds with a fresh copy of the
// response built by fn.
func respond(fn func() *api.Response) Handler {
	return func(_ context.Context, _ *api.Request) (*api.Response, error) {
		return fn(), nil
	}
}
