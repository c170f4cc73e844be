package api

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindInternal},
		{"plain error", errors.New("boom"), KindInternal},
		{"cancel error", NewCancelError("stop"), KindCancel},
		{"timeout error", NewTimeoutError("slow"), KindTimeout},
		{"explicit cancellation", ErrCancelled, KindCancel},
		{"client disconnected", ErrClientDisconnected, KindCancel},
		{"wrapped timeout", fmt.Errorf("handler: %w", NewTimeoutError("slow")), KindTimeout},
		{"context canceled", context.Canceled, KindCancel},
		{"context deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), KindTimeout},
		{"explicit kind wins over context error", NewInternalError("db", context.Canceled), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindInternal, "internal"},
		{KindCancel, "cancel"},
		{KindTimeout, "timeout"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestKindErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *KindError
		want string
	}{
		{"without cause", NewTimeoutError("upstream too slow"), "timeout: upstream too slow"},
		{"with cause", NewInternalError("render", errors.New("bad template")), "internal: render: bad template"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindErrorUnwrap(t *testing.T) {
	cause := errors.New("bad template")
	err := NewInternalError("render", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestValidationErrorMatchesContractViolation(t *testing.T) {
	err := ValidateResponse(nil, true, false)
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("expected contract violation, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.Field != "response" {
		t.Errorf("Field = %q, want %q", ve.Field, "response")
	}
}

func TestAPIErrorString(t *testing.T) {
	err := &APIError{Type: ErrorTypeUnauthorized, Message: "authentication required"}
	if got, want := err.Error(), "unauthorized: authentication required"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(429, &APIError{Type: ErrorTypeTooManyRequests, Message: "slow down"})
	if resp.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", resp.StatusCode)
	}
	body, err := ChunkifyJSON(resp.JSON)
	if err != nil {
		t.Fatalf("ChunkifyJSON: %v", err)
	}
	want := `{"error":{"type":"too_many_requests","message":"slow down"}}`
	if string(body) != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}
