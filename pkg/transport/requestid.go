package transport

import (
	"context"

	"github.com/rhuss/helo/pkg/api"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID returns a plugin that assigns a request ID to each request. If
// the inbound request carries an X-Request-ID header, that value is used.
// Otherwise a new ID is generated. The middleware echoes the ID in the
// response unless the response sets the header itself.
func RequestID() *Plugin {
	return &Plugin{
		Initializer: func(req *api.Request) {
			id := req.Header.Get(RequestIDHeader)
			if id == "" {
				id = api.NewRequestID()
			}
			req.ID = id
		},
		Middleware: func(next Handler) Handler {
			return func(ctx context.Context, req *api.Request) (*api.Response, error) {
				resp, err := next(ctx, req)
				if err != nil || resp == nil || req.ID == "" {
					return resp, err
				}
				if resp.Headers == nil {
					resp.Headers = api.NewHeaders()
				}
				if !resp.Headers.Sent() && !resp.Headers.Has(RequestIDHeader) {
					resp.Headers.Set(RequestIDHeader, req.ID)
				}
				return resp, nil
			}
		},
	}
}
