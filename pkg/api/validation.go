package api

import "strings"

// ValidateResponse checks the shape of a response. It returns a
// *ValidationError describing the first violation, or nil.
//
// allowBody is false when the request method or status code forbids a body.
// chunkOnly restricts the body to the Chunk representation; it is used for
// canned error responses.
func ValidateResponse(resp *Response, allowBody, chunkOnly bool) error {
	if resp == nil {
		return violation("response", "Expected `response` to be an object.")
	}

	if resp.StatusCode != 0 && (resp.StatusCode < 100 || resp.StatusCode > 999) {
		return violation("statusCode", "Expected `statusCode` to be a valid status code, got %d.", resp.StatusCode)
	}

	if resp.Headers != nil {
		if err := validateHeaders(resp.Headers); err != nil {
			return err
		}
	}

	return validateBody(resp, allowBody, chunkOnly)
}

func validateHeaders(h *Headers) error {
	if h.Sent() {
		return violation("headers", "Headers appear to have been sent in a previous response.")
	}

	seen := make(map[string]bool, h.Len())
	for _, name := range h.names {
		if name == "" {
			return violation("headers", "Unexpected empty header name.")
		}
		lower := strings.ToLower(name)
		if seen[lower] {
			return violation("headers", "Unexpected duplicate `%s` header.", name)
		}
		if _, ok := HeaderStrings(h.values[name]); !ok {
			return violation("headers", "Unexpected value for `%s` header.", name)
		}
		seen[lower] = true
	}
	return nil
}

func validateBody(resp *Response, allowBody, chunkOnly bool) error {
	hasStream := resp.Stream != nil
	hasChunk := resp.Chunk != nil
	hasHTML := resp.HTML != nil
	hasJSON := resp.JSON != nil
	hasForm := resp.Form != nil

	if hasStream {
		if !allowBody {
			return violation("stream", "Response contains `stream` but no body is allowed.")
		}
		if chunkOnly {
			return violation("stream", "Response contains `stream` but only `chunk` is allowed.")
		}
		if err := conflicts("stream", hasChunk, hasHTML, hasJSON, hasForm); err != nil {
			return err
		}
	}

	if hasChunk {
		if !allowBody {
			return violation("chunk", "Response contains `chunk` but no body is allowed.")
		}
		if err := conflicts("chunk", false, hasHTML, hasJSON, hasForm); err != nil {
			return err
		}
	}

	if hasHTML {
		if err := validateHTML(resp.HTML); err != nil {
			return err
		}
		if !allowBody {
			return violation("html", "Response contains `html` but no body is allowed.")
		}
		if chunkOnly {
			return violation("html", "Response contains `html` but only `chunk` is allowed.")
		}
		if err := conflicts("html", false, false, hasJSON, hasForm); err != nil {
			return err
		}
	}

	if hasJSON {
		if !allowBody {
			return violation("json", "Response contains `json` but no body is allowed.")
		}
		if chunkOnly {
			return violation("json", "Response contains `json` but only `chunk` is allowed.")
		}
		if err := conflicts("json", false, false, false, hasForm); err != nil {
			return err
		}
	}

	if hasForm {
		if !allowBody {
			return violation("form", "Response contains `form` but no body is allowed.")
		}
		if chunkOnly {
			return violation("form", "Response contains `form` but only `chunk` is allowed.")
		}
	}

	return nil
}

// conflicts reports the first other representation present next to present.
func conflicts(present string, chunk, html, json, form bool) error {
	for _, c := range []struct {
		name string
		set  bool
	}{
		{"chunk", chunk},
		{"html", html},
		{"json", json},
		{"form", form},
	} {
		if c.set {
			return violation(c.name, "Unexpected `%s` value when `%s` is present.", c.name, present)
		}
	}
	return nil
}

func validateHTML(html any) error {
	switch v := html.(type) {
	case string, []string:
		return nil
	case []any:
		for i, piece := range v {
			switch piece.(type) {
			case string, []byte:
			default:
				return violation("html", "Expected value at index %d of `html` array to be a string or buffer.", i)
			}
		}
		return nil
	}
	return violation("html", "Expected `html` to be a string or array.")
}
