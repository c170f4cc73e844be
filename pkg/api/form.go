package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ParseForm parses s assuming a content type of
// application/x-www-form-urlencoded. Pairs are separated by '&' only, so a
// ';' is part of the value. Only string values are returned; if a
// parameter is repeated the last value wins. A key or value with a
// malformed escape is kept as written.
func ParseForm(s string) map[string]string {
	out := make(map[string]string)
	for pair := range strings.SplitSeq(s, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		out[unescapeForm(key)] = unescapeForm(value)
	}
	return out
}

func unescapeForm(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// ChunkifyForm serializes a flat map of strings, booleans and finite numbers
// as an application/x-www-form-urlencoded body. Keys are emitted in sorted
// order and both keys and values are percent-encoded.
func ChunkifyForm(form map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(form))
	for key := range form {
		if key == "" {
			return nil, violation("form", "Unexpected empty form param.")
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		value, class := scalarString(form[key])
		if class == scalarNone {
			return nil, violation("form", "Unexpected value for `%s` form param.", key)
		}
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(EncodeURIComponent(key))
		b.WriteByte('=')
		b.WriteString(EncodeURIComponent(value))
	}
	return []byte(b.String()), nil
}

// ChunkifyJSON serializes v as compact JSON without a trailing newline.
// HTML characters are not escaped.
func ChunkifyJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding json body: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

const upperhex = "0123456789ABCDEF"

// EncodeURIComponent percent-encodes every byte of s except the unreserved
// characters A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EncodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
