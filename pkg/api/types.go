package api

import (
	"io"
	"net/http"
)

// Response is what the middleware chain produces. All fields are optional.
//
// At most one body representation may be set: Stream, Chunk, HTML, JSON or
// Form. A nil field is absent; an empty but non-nil Chunk or Form is present.
type Response struct {
	// StatusCode defaults to 200 when zero.
	StatusCode int

	// Headers are applied when the response head is written. They take
	// precedence over the content type implied by the body representation.
	Headers *Headers

	// Stream is piped to the client until it returns io.EOF. When the
	// request is cancelled a Stream that implements io.Closer is closed.
	// Any other Stream must return from Read on its own, typically by
	// honouring the request context; until it does, the goroutine copying
	// it stays alive.
	Stream io.Reader

	// Chunk is a pre-encoded body written as-is.
	Chunk []byte

	// HTML is a string, a []string, or a []any whose elements are strings
	// or []byte pieces. Pieces are written in order.
	HTML any

	// JSON is serialized with the configured JSON chunkifier.
	JSON any

	// Form is a flat map of scalars serialized with the configured form
	// chunkifier.
	Form map[string]any
}

// Status returns the effective status code.
func (r *Response) Status() int {
	if r == nil || r.StatusCode == 0 {
		return http.StatusOK
	}
	return r.StatusCode
}

// ErrorNotifier is implemented by response streams that can report failures
// out of band, in addition to returning them from Read. NotifyError
// registers fn and returns a function that detaches it again.
type ErrorNotifier interface {
	NotifyError(fn func(error)) (stop func(), err error)
}

// AllowBody reports whether a response to a request with the given method
// may carry a body. HEAD requests, 204, 304 and every 1xx status never do.
func AllowBody(method string, statusCode int) bool {
	return method != http.MethodHead &&
		statusCode != http.StatusNoContent &&
		statusCode != http.StatusNotModified &&
		(statusCode < 100 || statusCode > 199)
}
