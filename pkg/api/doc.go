// Package api defines the core types shared by the helo request stack.
//
// This package provides the request and response shapes that flow through
// the middleware chain, the response shape validator, the error taxonomy
// used to classify request failures, the per-request lifecycle phases, and
// the default body chunkifiers for JSON and form responses.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O.
//
// Core types:
//   - [Request]: Application-facing view of an inbound request
//   - [Response]: Shape contract for whatever the chain produces
//   - [Headers]: Ordered response headers with single-use identity
//   - [ValidationError]: Contract violation raised by [ValidateResponse]
//   - [KindError]: Request failure tagged with an explicit [ErrorKind]
//
// A response carries at most one body representation: Stream, Chunk, HTML,
// JSON or Form. Headers objects are single use: once written they are marked
// as sent and validating them again fails, so sensitive headers such as
// set-cookie cannot leak into a later response.
package api
