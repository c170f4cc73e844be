package transport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/helo/pkg/api"
)

// PanicError is the cause of an internal failure raised by a panic in the
// chain. Value is the value passed to panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// guard wraps h so that a panic raised while it runs is returned as an
// internal-kind error. Plain returns pass through unchanged.
func guard(h Handler) Handler {
	return func(ctx context.Context, req *api.Request) (resp *api.Response, err error) {
		defer func() {
			if r := recover(); r != nil {
				resp = nil
				err = recovered(r)
			}
		}()
		return h(ctx, req)
	}
}

// recovered converts a recovered panic value into an error. A panic with an
// error value keeps that error in the chain so api.KindOf sees its kind.
func recovered(r any) error {
	pe := &PanicError{Value: r, Stack: debug.Stack()}
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", pe, err)
	}
	return api.NewInternalError("recovered", pe)
}

// safeCall runs fn and logs a panic instead of propagating it.
func safeCall(logger *slog.Logger, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered panic", slog.String("in", what), slog.Any("panic", r))
		}
	}()
	fn()
}
