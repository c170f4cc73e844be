package api

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a request failure. The kind decides which status code
// and which lifecycle notification an unhandled failure maps to.
type ErrorKind int

const (
	// KindInternal covers every failure that is not a cancellation or a timeout.
	KindInternal ErrorKind = iota

	// KindCancel marks failures caused by cancelling the request.
	KindCancel

	// KindTimeout marks failures caused by a deadline expiring.
	KindTimeout
)

// String returns the lowercase name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindCancel:
		return "cancel"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Sentinel errors.
var (
	// ErrContractViolation is wrapped by every response shape violation.
	ErrContractViolation = errors.New("contract violation")

	// ErrInvalidArgument is wrapped by configuration calls given bad arguments.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFinalized is returned when the stack is modified after finalization.
	ErrFinalized = errors.New("stack already finalized")

	// ErrNotFinalized is returned when a stack is used before finalization.
	ErrNotFinalized = errors.New("stack not finalized")

	// ErrCancelled is the cause recorded when an operation is cancelled
	// explicitly, for example during shutdown.
	ErrCancelled = &KindError{Kind: KindCancel, Message: "request cancelled"}

	// ErrClientDisconnected is the cause recorded when the peer goes away
	// before the response has been written.
	ErrClientDisconnected = &KindError{Kind: KindCancel, Message: "client disconnected"}
)

// KindError is a request failure tagged with an explicit kind.
type KindError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *KindError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *KindError) Unwrap() error {
	return e.Err
}

// NewCancelError creates a cancel-kind failure.
func NewCancelError(message string) *KindError {
	return &KindError{Kind: KindCancel, Message: message}
}

// NewTimeoutError creates a timeout-kind failure.
func NewTimeoutError(message string) *KindError {
	return &KindError{Kind: KindTimeout, Message: message}
}

// NewInternalError creates an internal-kind failure wrapping err.
func NewInternalError(message string, err error) *KindError {
	return &KindError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf classifies err. Explicitly tagged errors win; otherwise
// context.Canceled maps to KindCancel and context.DeadlineExceeded maps to
// KindTimeout. Everything else, including nil, is KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCancel
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}
	return KindInternal
}

// ValidationError describes a contract violation: a malformed response,
// invalid headers, a reused headers object or an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports ErrContractViolation as matching every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrContractViolation
}

func violation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrorType represents the category of an error body sent to clients.
type ErrorType string

const (
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
)

// APIError is the JSON error body that plugins answer with when they
// short-circuit the chain.
type APIError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error body.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewErrorResponse builds a JSON response carrying apiErr with the given status.
func NewErrorResponse(statusCode int, apiErr *APIError) *Response {
	return &Response{
		StatusCode: statusCode,
		JSON:       ErrorResponse{Error: apiErr},
	}
}
