package api

import (
	"testing"
)

func TestNewRequestID(t *testing.T) {
	id := NewRequestID()
	if !ValidateRequestID(id) {
		t.Errorf("NewRequestID() = %q, want valid request ID", id)
	}
}

func TestValidateRequestID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "req_abcdefghijklmnopqrstuvwx", true},
		{"valid mixed case", "req_AbCdEfGhIjKlMnOpQrStUvWx", true},
		{"valid digits", "req_123456789012345678901234", true},
		{"wrong prefix", "resp_abcdefghijklmnopqrstuvwx", false},
		{"no prefix", "abcdefghijklmnopqrstuvwxyz1234", false},
		{"too short", "req_abc", false},
		{"too long", "req_abcdefghijklmnopqrstuvwxy", false},
		{"special chars", "req_abcdefghijklmnopqrstuv!@", false},
		{"empty", "", false},
		{"prefix only", "req_", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateRequestID(tt.id); got != tt.want {
				t.Errorf("ValidateRequestID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestIDUniqueness(t *testing.T) {
	const count = 1000
	seen := make(map[string]bool, count)

	for i := 0; i < count; i++ {
		id := NewRequestID()
		if seen[id] {
			t.Fatalf("duplicate request ID after %d generations: %s", i, id)
		}
		seen[id] = true
	}
}
