package transport

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rhuss/helo/pkg/api"
)

// errDetached is returned by a detached sink.
var errDetached = errors.New("outgoing message detached")

// sink is the response writer's view of an OutgoingMessage. Calls are
// serialized. Once detached every new call fails with errDetached; a call
// already in progress is left to return on its own. Use settle to wait for
// it before touching the message directly.
type sink struct {
	out OutgoingMessage

	mu       sync.Mutex
	detached atomic.Bool
}

func newSink(out OutgoingMessage) *sink {
	return &sink{out: out}
}

// detach never blocks.
func (s *sink) detach() {
	s.detached.Store(true)
}

// settle returns once no call is in progress.
func (s *sink) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
}

func (s *sink) do(fn func() error) error {
	if s.detached.Load() {
		return errDetached
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached.Load() {
		return errDetached
	}
	return fn()
}

func (s *sink) setHeader(name string, values ...string) error {
	return s.do(func() error {
		s.out.SetHeader(name, values...)
		return nil
	})
}

func (s *sink) writeHead(statusCode int, headers *api.Headers) error {
	return s.do(func() error { return s.out.WriteHead(statusCode, headers) })
}

func (s *sink) write(p []byte) error {
	return s.do(func() error {
		_, err := s.out.Write(p)
		return err
	})
}

func (s *sink) end(chunk []byte) error {
	return s.do(func() error { return s.out.End(chunk) })
}

func (s *sink) destroy(err error) {
	_ = s.do(func() error {
		s.out.Destroy(err)
		return nil
	})
}
