package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/transport"
)

// ErrMessageDone is returned by writes after End or Destroy, or after the
// request has been served.
var ErrMessageDone = errors.New("outgoing message already ended or destroyed")

// errHeadWritten is returned by a second WriteHead.
var errHeadWritten = errors.New("response head already written")

// messageState tracks the state of an outgoingMessage.
type messageState int

const (
	messageIdle      messageState = iota // No head written yet
	messageHeadSent                      // Head written, body may follow
	messageEnded                         // End called
	messageDestroyed                     // Destroy called
	messageReleased                      // ServeHTTP returned
)

// outgoingMessage implements transport.OutgoingMessage over an
// http.ResponseWriter. Every write is flushed so streamed bodies reach the
// client as they are produced.
type outgoingMessage struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu         sync.Mutex
	state      messageState
	headSent   bool
	destroyErr error

	finished chan struct{}
	closed   <-chan struct{}
}

var _ transport.OutgoingMessage = (*outgoingMessage)(nil)

func newOutgoingMessage(w http.ResponseWriter, r *http.Request) *outgoingMessage {
	return &outgoingMessage{
		w:        w,
		rc:       http.NewResponseController(w),
		finished: make(chan struct{}),
		closed:   r.Context().Done(),
	}
}

// SetHeader sets a header for the head. It has no effect once the head has
// been written.
func (m *outgoingMessage) SetHeader(name string, values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != messageIdle {
		return
	}
	m.w.Header()[http.CanonicalHeaderKey(name)] = values
}

// WriteHead writes the status line and headers. Explicit headers replace
// headers of the same name set with SetHeader.
func (m *outgoingMessage) WriteHead(statusCode int, headers *api.Headers) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case messageIdle:
	case messageHeadSent:
		return errHeadWritten
	default:
		return ErrMessageDone
	}
	m.writeHeadLocked(statusCode, headers)
	return nil
}

func (m *outgoingMessage) writeHeadLocked(statusCode int, headers *api.Headers) {
	if headers != nil {
		h := m.w.Header()
		headers.Each(func(name string, value any) {
			if values, ok := api.HeaderStrings(value); ok {
				h[http.CanonicalHeaderKey(name)] = values
			}
		})
	}
	m.w.WriteHeader(statusCode)
	m.state = messageHeadSent
	m.headSent = true
}

// Write writes part of the body, sending a 200 head first if needed.
func (m *outgoingMessage) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case messageIdle:
		m.writeHeadLocked(http.StatusOK, nil)
	case messageHeadSent:
	default:
		return 0, ErrMessageDone
	}
	n, err := m.w.Write(p)
	if err != nil {
		return n, err
	}
	return n, m.flush()
}

// End writes chunk, flushes and marks the message finished.
func (m *outgoingMessage) End(chunk []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case messageIdle:
		m.writeHeadLocked(http.StatusOK, nil)
	case messageHeadSent:
	default:
		return ErrMessageDone
	}
	if len(chunk) > 0 {
		if _, err := m.w.Write(chunk); err != nil {
			return err
		}
	}
	err := m.flush()
	m.state = messageEnded
	close(m.finished)
	return err
}

// Destroy marks the message destroyed. The connection is aborted when
// ServeHTTP returns.
func (m *outgoingMessage) Destroy(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state >= messageEnded {
		return
	}
	m.state = messageDestroyed
	m.destroyErr = err
}

// HeadersSent reports whether the head has been written.
func (m *outgoingMessage) HeadersSent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headSent
}

// Finished is closed once End has flushed the message.
func (m *outgoingMessage) Finished() <-chan struct{} { return m.finished }

// Closed is closed when the client disconnects or the request is served.
func (m *outgoingMessage) Closed() <-chan struct{} { return m.closed }

// release ends the message's use of the ResponseWriter and reports whether
// it was destroyed.
func (m *outgoingMessage) release() (destroyed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	destroyed = m.state == messageDestroyed
	if m.state < messageEnded {
		destroyed = true
	}
	m.state = messageReleased
	return destroyed
}

func (m *outgoingMessage) flush() error {
	err := m.rc.Flush()
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}
