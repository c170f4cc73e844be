// Package transport implements the request lifecycle coordinator of helo.
//
// A Stack turns every inbound request delivered by a Listener into an
// *api.Request, runs it through an ordered chain of middleware ending at a
// terminal Handler, and writes the resulting *api.Response to the outbound
// message. Each request ends in exactly one written response or one
// destroyed connection.
//
// # Middleware
//
// Middleware factories are registered with AddMiddleware or Install and
// composed once by Finalize. The factory registered first is the outermost
// wrapper; the last one wraps the terminal handler most tightly. The next
// Handler passed to every factory recovers panics raised further down the
// chain and returns them as internal-kind errors.
//
// Built-in plugins provide request ID assignment (X-Request-ID), structured
// logging via log/slog and per-request timeouts.
//
// # Cancellation
//
// Every in-flight request is tracked in an ActiveSet. A request is cancelled
// when its client disconnects or when CancelAll is called. Cancellation
// cancels the request context and detaches the response writer before it
// returns, so no write happens on a cancelled request's message afterwards.
//
// # Failures
//
// Failures are classified with api.KindOf. Cancellations map to 503,
// timeouts to 504 and everything else to 500. If nothing has been written
// yet, the canned response registered with SetErrorResponse for that status
// is sent, or a bare status line if none was registered. Otherwise the
// outbound message is destroyed.
//
// # Notifications
//
// Nine lifecycle notifications are delivered synchronously to subscribers
// registered with On. See EventKind.
package transport
