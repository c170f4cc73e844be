package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/rhuss/helo/pkg/api"
)

// Timeout returns middleware that fails a request with a timeout-kind error
// when the rest of the chain does not produce a result within d. The
// context passed down the chain carries the deadline.
func Timeout(d time.Duration) Middleware {
	return func(next Handler) Handler {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, req *api.Request) (*api.Response, error) {
			ctx, cancel := context.WithTimeoutCause(ctx, d, api.NewTimeoutError(fmt.Sprintf("no response within %s", d)))
			defer cancel()

			done := make(chan result, 1)
			go func() {
				resp, err := next(ctx, req)
				done <- result{resp: resp, err: err}
			}()

			select {
			case r := <-done:
				return r.resp, r.err
			case <-ctx.Done():
				return nil, context.Cause(ctx)
			}
		}
	}
}
