package main

import (
	"context"
	"net/http"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/auth"
)

// requestInfo is the JSON body answered to GET requests.
type requestInfo struct {
	ID      string            `json:"id,omitempty"`
	Method  string            `json:"method"`
	Host    string            `json:"host,omitempty"`
	Path    string            `json:"path"`
	Query   map[string]string `json:"query,omitempty"`
	Subject string            `json:"subject,omitempty"`
}

// demo describes GET requests as JSON, echoes POST and PUT bodies as a
// stream and answers HEAD with 204.
func demo(_ context.Context, req *api.Request) (*api.Response, error) {
	switch req.Method {
	case http.MethodGet:
		info := requestInfo{
			ID:     req.ID,
			Method: req.Method,
			Host:   req.Host,
			Path:   req.Pathname,
			Query:  req.Query(),
		}
		if id := auth.IdentityFrom(req); id != nil {
			info.Subject = id.Subject
		}
		return &api.Response{JSON: info}, nil

	case http.MethodPost, http.MethodPut:
		contentType := req.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return &api.Response{
			Headers: api.NewHeaders().Set("Content-Type", contentType),
			Stream:  req.Body,
		}, nil

	case http.MethodHead:
		return &api.Response{StatusCode: http.StatusNoContent}, nil
	}

	return &api.Response{
		StatusCode: http.StatusMethodNotAllowed,
		Headers:    api.NewHeaders().Set("Allow", []string{"GET", "HEAD", "POST", "PUT"}),
	}, nil
}
