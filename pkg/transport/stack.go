package transport

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rhuss/helo/pkg/api"
)

// Stack coordinates the lifecycle of every request it observes.
//
// Configure a Stack with AddInitializer, AddMiddleware and Install, compose
// it with Finalize, then feed it requests with Observe or Handle. All
// methods are safe for concurrent use.
type Stack struct {
	logger *slog.Logger
	writer *responseWriter
	events *eventBus
	active *ActiveSet

	mu             sync.RWMutex
	initializers   []Initializer
	factories      []Middleware
	chain          Handler
	errorResponses map[int]*api.Response
}

// Option configures a Stack.
type Option func(*stackOptions)

type stackOptions struct {
	contentTypes ContentTypes
	chunkifiers  Chunkifiers
	logger       *slog.Logger
}

// WithContentTypes overrides the content types of the html, json and form
// representations. Empty fields keep their defaults.
func WithContentTypes(ct ContentTypes) Option {
	return func(o *stackOptions) { o.contentTypes = ct }
}

// WithChunkifiers overrides the json and form serializers. Nil fields keep
// their defaults.
func WithChunkifiers(c Chunkifiers) Option {
	return func(o *stackOptions) { o.chunkifiers = c }
}

// WithLogger sets the logger used for recovered panics and failures that
// cannot be reported otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *stackOptions) { o.logger = l }
}

// New creates an empty Stack.
func New(opts ...Option) *Stack {
	o := stackOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	events := &eventBus{logger: o.logger}
	return &Stack{
		logger: o.logger,
		events: events,
		active: NewActiveSet(),
		writer: &responseWriter{
			types:       o.contentTypes.withDefaults(),
			chunkifiers: o.chunkifiers.withDefaults(),
			events:      events,
		},
		errorResponses: make(map[int]*api.Response),
	}
}

// AddInitializer registers fn to run on every new request. Initializers
// run in registration order and may be added after Finalize.
func (s *Stack) AddInitializer(fn Initializer) error {
	if fn == nil {
		return fmt.Errorf("%w: initializer must not be nil", api.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializers = append(s.initializers, fn)
	return nil
}

// AddMiddleware registers a middleware factory. Factories can only be added
// before Finalize.
func (s *Stack) AddMiddleware(factory Middleware) error {
	if factory == nil {
		return fmt.Errorf("%w: middleware must not be nil", api.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chain != nil {
		return fmt.Errorf("%w: cannot add middleware", api.ErrFinalized)
	}
	s.factories = append(s.factories, factory)
	return nil
}

// Install registers the initializer and middleware of p, whichever are set.
// Nothing is registered if the middleware cannot be added.
func (s *Stack) Install(p *Plugin) error {
	if p == nil {
		return fmt.Errorf("%w: plugin must not be nil", api.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Middleware != nil {
		if s.chain != nil {
			return fmt.Errorf("%w: cannot install middleware", api.ErrFinalized)
		}
		s.factories = append(s.factories, p.Middleware)
	}
	if p.Initializer != nil {
		s.initializers = append(s.initializers, p.Initializer)
	}
	return nil
}

// Finalize composes the middleware chain around terminal. It can be called
// only once.
func (s *Stack) Finalize(terminal Handler) error {
	if terminal == nil {
		return fmt.Errorf("%w: terminal handler must not be nil", api.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chain != nil {
		return fmt.Errorf("%w: finalize called twice", api.ErrFinalized)
	}
	s.chain = compose(s.factories, terminal)
	return nil
}

// SetErrorResponse registers the canned response sent for resp.StatusCode
// when a request fails before anything was written. The response needs a
// status code and may only carry headers and a chunk. A later registration
// for the same status code replaces the earlier one.
func (s *Stack) SetErrorResponse(resp *api.Response) error {
	if resp == nil {
		return api.ValidateResponse(nil, true, true)
	}
	if resp.StatusCode == 0 {
		return fmt.Errorf("%w: error response requires a status code", api.ErrInvalidArgument)
	}
	if err := api.ValidateResponse(resp, true, true); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorResponses[resp.StatusCode] = resp
	return nil
}

// Observe starts handling the requests delivered by l. The stack must be
// finalized first.
func (s *Stack) Observe(l Listener) error {
	if l == nil {
		return fmt.Errorf("%w: listener must not be nil", api.ErrInvalidArgument)
	}
	if !s.Finalized() {
		return fmt.Errorf("%w: cannot observe", api.ErrNotFinalized)
	}
	l.OnRequest(s.Handle)
	return nil
}

// Finalized reports whether Finalize has been called.
func (s *Stack) Finalized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain != nil
}

// CancelAll cancels every in-flight request and returns how many were
// cancelled. It does not wait for the requests to settle. Requests that
// have not written anything yet receive the 503 error response.
func (s *Stack) CancelAll() int {
	return s.active.CancelAll(api.ErrCancelled)
}

// Active returns the number of in-flight requests.
func (s *Stack) Active() int {
	return s.active.Len()
}

// On subscribes fn to notifications of the given kind and returns a
// function that removes the subscription.
func (s *Stack) On(kind EventKind, fn Subscriber) func() {
	if fn == nil {
		return func() {}
	}
	return s.events.subscribe(kind, fn)
}

func (s *Stack) snapshot() (Handler, []Initializer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain, s.initializers[:len(s.initializers):len(s.initializers)]
}

func (s *Stack) errorResponse(status int) *api.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorResponses[status]
}
