package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/rhuss/helo/pkg/api"
)

// Handler produces the response for a request. The context is cancelled
// when the request is cancelled; its cause is available via context.Cause.
type Handler func(ctx context.Context, req *api.Request) (*api.Response, error)

// Middleware wraps the remainder of the chain. It may short-circuit by
// returning a response without calling next, or delegate to next and
// change what it returns.
type Middleware func(next Handler) Handler

// Initializer mutates a request right after construction. Initializers run
// in registration order before any middleware sees the request.
type Initializer func(req *api.Request)

// Plugin bundles an optional initializer with an optional middleware.
type Plugin struct {
	Initializer Initializer
	Middleware  Middleware
}

// IncomingMessage is the raw inbound request as delivered by a Listener.
type IncomingMessage struct {
	Method string
	Header http.Header

	// URL is the request target, usually "/path?query".
	URL string

	// Body streams the request body. It may be nil.
	Body io.Reader
}

// OutgoingMessage is the output sink of a single request. Implementations
// must be safe for use from multiple goroutines.
type OutgoingMessage interface {
	// SetHeader sets a header that WriteHead sends unless the explicit
	// headers passed to WriteHead contain the same name.
	SetHeader(name string, values ...string)

	// WriteHead sends the status line and headers. Explicit headers take
	// precedence over headers set with SetHeader.
	WriteHead(statusCode int, headers *api.Headers) error

	// Write sends part of the body. It sends the head with status 200 if
	// WriteHead was not called.
	Write(p []byte) (int, error)

	// End writes chunk, if any, and completes the message. Finished is
	// closed once everything has been flushed.
	End(chunk []byte) error

	// Destroy aborts the message. The connection is closed without
	// completing the response.
	Destroy(err error)

	// HeadersSent reports whether the head has been written.
	HeadersSent() bool

	// Finished is closed once End has flushed the message.
	Finished() <-chan struct{}

	// Closed is closed when the client goes away.
	Closed() <-chan struct{}
}

// Listener delivers inbound requests. OnRequest registers fn to be called
// once per request. Implementations call fn on a goroutine per request and
// may block until fn returns.
type Listener interface {
	OnRequest(fn func(in *IncomingMessage, out OutgoingMessage))
}
