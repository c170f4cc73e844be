package transport

import (
	"sync"
	"time"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/debug"
)

// HandlingState is the per-request state threaded through the lifecycle.
// It is owned by one request and handed to subscribers with every
// notification.
type HandlingState struct {
	In  *IncomingMessage
	Out OutgoingMessage

	// Request is nil until the request has been constructed.
	Request *api.Request

	// Response is nil until the chain has produced one.
	Response *api.Response

	StartedAt time.Time

	mu        sync.Mutex
	phase     api.Phase
	streaming bool
}

func newHandlingState(in *IncomingMessage, out OutgoingMessage) *HandlingState {
	return &HandlingState{In: in, Out: out, StartedAt: time.Now()}
}

// Phase returns the current lifecycle phase.
func (s *HandlingState) Phase() api.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Streaming reports whether a response stream is being piped.
func (s *HandlingState) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

func (s *HandlingState) setStreaming(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = v
}

// advance moves to phase p. Invalid transitions are logged and ignored.
func (s *HandlingState) advance(p api.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := api.ValidatePhaseTransition(s.phase, p); err != nil {
		debug.Log("transport", "ignoring phase change", "error", err.Error())
		return
	}
	s.phase = p
}

// Method returns the method of the inbound request.
func (s *HandlingState) Method() string {
	if s.Request != nil {
		return s.Request.Method
	}
	if s.In != nil {
		return s.In.Method
	}
	return ""
}
