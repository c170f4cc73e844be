package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
)

// Request is the application-facing view of an inbound request. One Request
// is created per inbound request and passed through the whole chain.
//
// The exported fields are captured at construction and should be treated as
// read-only. Initializers and middleware attach their own data with Set.
type Request struct {
	// ID identifies the request in logs and response headers. It is empty
	// unless a request ID initializer is installed.
	ID string

	Method string
	Header http.Header
	Host   string

	// Path is the raw path including the querystring, if any.
	Path string

	// Pathname is the path without the querystring.
	Pathname string

	// Querystring is the text after the "?" without the "?" itself.
	Querystring string

	// Body streams the request body. It is nil for GET, DELETE and HEAD
	// requests, which conventionally carry no body.
	Body io.Reader

	mu          sync.Mutex
	queryLoaded bool
	query       map[string]string
	values      map[any]any
}

// NewRequest builds a Request from the parts exposed by an inbound message.
// The URL is expected in request-target form ("/path?query") but absolute
// URLs are accepted too.
func NewRequest(method string, header http.Header, rawURL string, body io.Reader) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing request url: %w", err)
	}
	if header == nil {
		header = make(http.Header)
	}

	r := &Request{
		Method:      method,
		Header:      header,
		Host:        header.Get("Host"),
		Pathname:    u.EscapedPath(),
		Querystring: u.RawQuery,
	}
	r.Path = r.Pathname
	if u.RawQuery != "" || u.ForceQuery {
		r.Path += "?" + u.RawQuery
	}

	switch method {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
	default:
		r.Body = body
	}
	return r, nil
}

// Query returns the querystring parsed into a map. The querystring is parsed
// at most once; if a parameter is repeated the last value wins. After
// SetQuery the parsed querystring is never consulted again.
func (r *Request) Query() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.queryLoaded {
		r.queryLoaded = true
		r.query = ParseForm(r.Querystring)
	}
	return r.query
}

// SetQuery replaces the query mapping.
func (r *Request) SetQuery(q map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queryLoaded = true
	r.query = q
}

// Set stores a value on the request under key.
func (r *Request) Set(key, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values == nil {
		r.values = make(map[any]any)
	}
	r.values[key] = value
}

// Value returns the value stored under key, or nil.
func (r *Request) Value(key any) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key]
}

// IsRequest reports whether v is a *Request built by this package.
func IsRequest(v any) bool {
	r, ok := v.(*Request)
	return ok && r != nil
}
