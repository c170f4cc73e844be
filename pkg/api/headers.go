package api

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// Headers holds response headers in insertion order. Values are scalars
// (string, bool, finite number) or homogeneous slices of scalars.
//
// A Headers value is single use. Writing a response marks its headers as
// sent, after which ValidateResponse rejects any response that carries the
// same Headers again. Headers are not safe for concurrent mutation.
type Headers struct {
	names  []string
	values map[string]any
	sent   atomic.Bool
}

// NewHeaders returns an empty Headers.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string]any)}
}

// HeadersFrom builds Headers from a map. Names are added in sorted order so
// the result is deterministic.
func HeadersFrom(m map[string]any) *Headers {
	h := NewHeaders()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Set(name, m[name])
	}
	return h
}

// Set stores value under name. A name that matches an existing entry
// exactly is overwritten; names differing only in case are kept as separate
// entries and rejected later by ValidateResponse.
func (h *Headers) Set(name string, value any) *Headers {
	if h.values == nil {
		h.values = make(map[string]any)
	}
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = value
	return h
}

// Get returns the value of the first entry matching name case-insensitively.
func (h *Headers) Get(name string) (any, bool) {
	for _, n := range h.names {
		if strings.EqualFold(n, name) {
			return h.values[n], true
		}
	}
	return nil, false
}

// Has reports whether an entry matches name case-insensitively.
func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Del removes every entry matching name case-insensitively.
func (h *Headers) Del(name string) {
	kept := h.names[:0]
	for _, n := range h.names {
		if strings.EqualFold(n, name) {
			delete(h.values, n)
			continue
		}
		kept = append(kept, n)
	}
	h.names = kept
}

// Len returns the number of entries.
func (h *Headers) Len() int {
	return len(h.names)
}

// Each calls fn for every entry in insertion order.
func (h *Headers) Each(fn func(name string, value any)) {
	for _, n := range h.names {
		fn(n, h.values[n])
	}
}

// Sent reports whether the headers have been written in a response.
func (h *Headers) Sent() bool {
	return h.sent.Load()
}

// MarkSent flags the headers as written. It cannot be undone.
func (h *Headers) MarkSent() {
	h.sent.Store(true)
}

// HeaderStrings renders a header value as the strings that go on the wire.
// The second result is false if value is not a valid header value.
func HeaderStrings(value any) ([]string, bool) {
	if s, class := scalarString(value); class != scalarNone {
		return []string{s}, true
	}

	items, ok := sliceItems(value)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	first := scalarNone
	for _, item := range items {
		s, class := scalarString(item)
		if class == scalarNone {
			return nil, false
		}
		if first == scalarNone {
			first = class
		} else if class != first {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

type scalarClass int

const (
	scalarNone scalarClass = iota
	scalarText
	scalarNumber
	scalarBool
)

// scalarString formats strings, booleans and finite numbers.
func scalarString(v any) (string, scalarClass) {
	switch x := v.(type) {
	case string:
		return x, scalarText
	case bool:
		return strconv.FormatBool(x), scalarBool
	case int:
		return strconv.Itoa(x), scalarNumber
	case int8:
		return strconv.FormatInt(int64(x), 10), scalarNumber
	case int16:
		return strconv.FormatInt(int64(x), 10), scalarNumber
	case int32:
		return strconv.FormatInt(int64(x), 10), scalarNumber
	case int64:
		return strconv.FormatInt(x, 10), scalarNumber
	case uint:
		return strconv.FormatUint(uint64(x), 10), scalarNumber
	case uint8:
		return strconv.FormatUint(uint64(x), 10), scalarNumber
	case uint16:
		return strconv.FormatUint(uint64(x), 10), scalarNumber
	case uint32:
		return strconv.FormatUint(uint64(x), 10), scalarNumber
	case uint64:
		return strconv.FormatUint(x, 10), scalarNumber
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", scalarNone
		}
		return strconv.FormatFloat(f, 'f', -1, 32), scalarNumber
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", scalarNone
		}
		return strconv.FormatFloat(x, 'f', -1, 64), scalarNumber
	}
	return "", scalarNone
}

// sliceItems flattens the slice types accepted as multi-valued headers.
func sliceItems(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case []bool:
		out := make([]any, len(x))
		for i, b := range x {
			out[i] = b
		}
		return out, true
	}
	return nil, false
}
