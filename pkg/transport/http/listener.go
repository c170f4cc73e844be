package http

import (
	"net/http"
	"sync"

	"github.com/rhuss/helo/pkg/debug"
	"github.com/rhuss/helo/pkg/transport"
)

// Listener delivers requests received by net/http to a transport.Stack.
// It implements both http.Handler and transport.Listener.
//
// ServeHTTP blocks until the stack has settled the request. A destroyed
// message aborts the connection with http.ErrAbortHandler.
type Listener struct {
	maxBodySize int64

	mu sync.RWMutex
	fn func(in *transport.IncomingMessage, out transport.OutgoingMessage)
}

var (
	_ http.Handler       = (*Listener)(nil)
	_ transport.Listener = (*Listener)(nil)
)

// NewListener creates a Listener. Request bodies larger than maxBodySize
// fail to read; zero or less disables the limit.
func NewListener(maxBodySize int64) *Listener {
	return &Listener{maxBodySize: maxBodySize}
}

// OnRequest registers fn to receive every request. A later call replaces
// the earlier registration.
func (l *Listener) OnRequest(fn func(in *transport.IncomingMessage, out transport.OutgoingMessage)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fn = fn
}

// ServeHTTP implements http.Handler.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.mu.RLock()
	fn := l.fn
	l.mu.RUnlock()

	if fn == nil {
		http.Error(w, "no request handler registered", http.StatusServiceUnavailable)
		return
	}

	body := r.Body
	if l.maxBodySize > 0 && body != nil {
		body = http.MaxBytesReader(w, r.Body, l.maxBodySize)
	}

	// net/http moves the Host header to r.Host.
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if header.Get("Host") == "" && r.Host != "" {
		header.Set("Host", r.Host)
	}

	in := &transport.IncomingMessage{
		Method: r.Method,
		Header: header,
		URL:    r.URL.RequestURI(),
		Body:   body,
	}
	out := newOutgoingMessage(w, r)

	fn(in, out)

	if out.release() {
		debug.Log("transport", "aborting connection", "method", r.Method, "path", r.URL.Path)
		panic(http.ErrAbortHandler)
	}
}
