package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/helo/pkg/api"
)

// Logging returns middleware that emits a structured log entry for each
// request once the rest of the chain has produced a result. The entry
// includes request ID, method, path, resulting status and duration.
//
// The status is the one the chain asked for; a write that fails later is
// reported by LogEvents instead.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req *api.Request) (*api.Response, error) {
			start := time.Now()

			resp, err := next(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", req.ID),
				slog.String("method", req.Method),
				slog.String("path", req.Pathname),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs,
					slog.Int("status", StatusFromError(err)),
					slog.String("kind", api.KindOf(err).String()),
					slog.String("error", err.Error()),
				)
				logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
			} else {
				attrs = append(attrs, slog.Int("status", resp.Status()))
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			}

			return resp, err
		}
	}
}

// LogEvents logs failure notifications of s. Cancellations, timeouts and
// observation failures are logged as warnings, everything else as errors.
// The returned function stops logging.
func LogEvents(s *Stack, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}

	levels := map[EventKind]slog.Level{
		EventCancelError:             slog.LevelWarn,
		EventTimeoutError:            slog.LevelWarn,
		EventInternalError:           slog.LevelError,
		EventResponseCancel:          slog.LevelWarn,
		EventStreamingError:          slog.LevelError,
		EventStreamObservationFailed: slog.LevelWarn,
	}

	var stops []func()
	for kind, level := range levels {
		stops = append(stops, s.On(kind, func(ev Event) {
			attrs := []slog.Attr{
				slog.String("event", ev.Kind.String()),
				slog.String("method", ev.State.Method()),
				slog.String("phase", string(ev.State.Phase())),
			}
			if req := ev.State.Request; req != nil {
				attrs = append(attrs,
					slog.String("request_id", req.ID),
					slog.String("path", req.Pathname),
				)
			}
			if ev.Err != nil {
				attrs = append(attrs, slog.String("error", ev.Err.Error()))
			}
			logger.LogAttrs(context.Background(), level, "request lifecycle failure", attrs...)
		}))
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}
