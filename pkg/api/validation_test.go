package api

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateResponse(t *testing.T) {
	stream := bytes.NewReader([]byte("data"))

	tests := []struct {
		name      string
		resp      *Response
		allowBody bool
		chunkOnly bool
		wantErr   string // substring; empty means valid
	}{
		{name: "nil response", resp: nil, allowBody: true, wantErr: "Expected `response` to be an object."},
		{name: "empty response", resp: &Response{}, allowBody: true},
		{name: "empty response, no body allowed", resp: &Response{}, allowBody: false},
		{name: "status code", resp: &Response{StatusCode: 201}, allowBody: true},
		{name: "negative status code", resp: &Response{StatusCode: -1}, allowBody: true, wantErr: "Expected `statusCode`"},
		{name: "status code too large", resp: &Response{StatusCode: 1000}, allowBody: true, wantErr: "Expected `statusCode`"},

		// Single representations.
		{name: "stream", resp: &Response{Stream: stream}, allowBody: true},
		{name: "chunk", resp: &Response{Chunk: []byte("x")}, allowBody: true},
		{name: "empty chunk", resp: &Response{Chunk: []byte{}}, allowBody: true},
		{name: "html string", resp: &Response{HTML: "<p>"}, allowBody: true},
		{name: "html strings", resp: &Response{HTML: []string{"<p>", "</p>"}}, allowBody: true},
		{name: "html pieces", resp: &Response{HTML: []any{"<p>", []byte("</p>")}}, allowBody: true},
		{name: "json", resp: &Response{JSON: map[string]any{"foo": "bar"}}, allowBody: true},
		{name: "form", resp: &Response{Form: map[string]any{"foo": "bar"}}, allowBody: true},

		// Representation types.
		{name: "html wrong type", resp: &Response{HTML: 42}, allowBody: true, wantErr: "Expected `html` to be a string or array."},
		{name: "html bad piece", resp: &Response{HTML: []any{"ok", 42}}, allowBody: true, wantErr: "Expected value at index 1 of `html` array to be a string or buffer."},

		// Exclusivity.
		{name: "stream and chunk", resp: &Response{Stream: stream, Chunk: []byte("x")}, allowBody: true, wantErr: "Unexpected `chunk` value when `stream` is present."},
		{name: "stream and html", resp: &Response{Stream: stream, HTML: "x"}, allowBody: true, wantErr: "Unexpected `html` value when `stream` is present."},
		{name: "stream and json", resp: &Response{Stream: stream, JSON: 1}, allowBody: true, wantErr: "Unexpected `json` value when `stream` is present."},
		{name: "stream and form", resp: &Response{Stream: stream, Form: map[string]any{}}, allowBody: true, wantErr: "Unexpected `form` value when `stream` is present."},
		{name: "chunk and html", resp: &Response{Chunk: []byte("x"), HTML: "x"}, allowBody: true, wantErr: "Unexpected `html` value when `chunk` is present."},
		{name: "chunk and json", resp: &Response{Chunk: []byte("x"), JSON: 1}, allowBody: true, wantErr: "Unexpected `json` value when `chunk` is present."},
		{name: "chunk and form", resp: &Response{Chunk: []byte("x"), Form: map[string]any{}}, allowBody: true, wantErr: "Unexpected `form` value when `chunk` is present."},
		{name: "html and json", resp: &Response{HTML: "x", JSON: 1}, allowBody: true, wantErr: "Unexpected `json` value when `html` is present."},
		{name: "html and form", resp: &Response{HTML: "x", Form: map[string]any{}}, allowBody: true, wantErr: "Unexpected `form` value when `html` is present."},
		{name: "json and form", resp: &Response{JSON: 1, Form: map[string]any{}}, allowBody: true, wantErr: "Unexpected `form` value when `json` is present."},

		// No body allowed.
		{name: "stream without body", resp: &Response{Stream: stream}, wantErr: "Response contains `stream` but no body is allowed."},
		{name: "chunk without body", resp: &Response{Chunk: []byte("x")}, wantErr: "Response contains `chunk` but no body is allowed."},
		{name: "html without body", resp: &Response{HTML: "x"}, wantErr: "Response contains `html` but no body is allowed."},
		{name: "json without body", resp: &Response{JSON: 1}, wantErr: "Response contains `json` but no body is allowed."},
		{name: "form without body", resp: &Response{Form: map[string]any{}}, wantErr: "Response contains `form` but no body is allowed."},

		// Chunk-only mode.
		{name: "chunk only accepts chunk", resp: &Response{StatusCode: 500, Chunk: []byte("x")}, allowBody: true, chunkOnly: true},
		{name: "chunk only rejects stream", resp: &Response{Stream: stream}, allowBody: true, chunkOnly: true, wantErr: "Response contains `stream` but only `chunk` is allowed."},
		{name: "chunk only rejects html", resp: &Response{HTML: "x"}, allowBody: true, chunkOnly: true, wantErr: "Response contains `html` but only `chunk` is allowed."},
		{name: "chunk only rejects json", resp: &Response{JSON: 1}, allowBody: true, chunkOnly: true, wantErr: "Response contains `json` but only `chunk` is allowed."},
		{name: "chunk only rejects form", resp: &Response{Form: map[string]any{}}, allowBody: true, chunkOnly: true, wantErr: "Response contains `form` but only `chunk` is allowed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResponse(tt.resp, tt.allowBody, tt.chunkOnly)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateResponse() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateResponse() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
			if !errors.Is(err, ErrContractViolation) {
				t.Errorf("error %v does not match ErrContractViolation", err)
			}
		})
	}
}

func TestValidateResponseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers *Headers
		wantErr string
	}{
		{name: "empty headers", headers: NewHeaders()},
		{name: "string value", headers: NewHeaders().Set("x-foo", "bar")},
		{name: "number value", headers: NewHeaders().Set("content-length", 42)},
		{name: "float value", headers: NewHeaders().Set("x-ratio", 0.5)},
		{name: "bool value", headers: NewHeaders().Set("x-flag", true)},
		{name: "string array", headers: NewHeaders().Set("set-cookie", []string{"a=1", "b=2"})},
		{name: "homogeneous any array", headers: NewHeaders().Set("x-nums", []any{1, 2.5})},
		{name: "empty name", headers: NewHeaders().Set("", "x"), wantErr: "Unexpected empty header name."},
		{name: "case-insensitive duplicate", headers: NewHeaders().Set("X-Foo", "a").Set("x-foo", "b"), wantErr: "Unexpected duplicate `x-foo` header."},
		{name: "nil value", headers: NewHeaders().Set("x-foo", nil), wantErr: "Unexpected value for `x-foo` header."},
		{name: "NaN value", headers: NewHeaders().Set("x-foo", math.NaN()), wantErr: "Unexpected value for `x-foo` header."},
		{name: "infinite value", headers: NewHeaders().Set("x-foo", math.Inf(1)), wantErr: "Unexpected value for `x-foo` header."},
		{name: "struct value", headers: NewHeaders().Set("x-foo", struct{}{}), wantErr: "Unexpected value for `x-foo` header."},
		{name: "mixed array", headers: NewHeaders().Set("x-foo", []any{"a", 1}), wantErr: "Unexpected value for `x-foo` header."},
		{name: "nested array", headers: NewHeaders().Set("x-foo", []any{[]string{"a"}}), wantErr: "Unexpected value for `x-foo` header."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResponse(&Response{Headers: tt.headers}, true, false)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateResponse() = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("ValidateResponse() = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateResponseRejectsSentHeaders(t *testing.T) {
	headers := NewHeaders().Set("set-cookie", "session=secret")

	first := &Response{Headers: headers}
	if err := ValidateResponse(first, true, false); err != nil {
		t.Fatalf("first validation: %v", err)
	}
	headers.MarkSent()

	second := &Response{Headers: headers}
	err := ValidateResponse(second, true, false)
	if err == nil {
		t.Fatal("expected reused headers to be rejected")
	}
	if !strings.Contains(err.Error(), "Headers appear to have been sent") {
		t.Errorf("error = %q, want headers-sent message", err.Error())
	}
}

func TestAllowBody(t *testing.T) {
	tests := []struct {
		method string
		status int
		want   bool
	}{
		{"HEAD", 200, false},
		{"GET", 200, true},
		{"POST", 201, true},
		{"GET", 99, true},
		{"GET", 100, false},
		{"GET", 150, false},
		{"GET", 199, false},
		{"GET", 204, false},
		{"GET", 304, false},
		{"GET", 500, true},
	}
	for _, tt := range tests {
		if got := AllowBody(tt.method, tt.status); got != tt.want {
			t.Errorf("AllowBody(%q, %d) = %v, want %v", tt.method, tt.status, got, tt.want)
		}
	}
}
