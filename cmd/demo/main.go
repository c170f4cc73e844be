// Command demo walks through the request lifecycle of a helo stack in a
// single process: a JSON response, a streamed response, a failing handler
// answered by a canned error response and a request cancelled by CancelAll.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/transport"
	transporthttp "github.com/rhuss/helo/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Println("=== helo request lifecycle demo ===")
	fmt.Println()

	stack := transport.New()
	if err := stack.Install(transport.RequestID()); err != nil {
		return err
	}
	if err := stack.SetErrorResponse(&api.Response{
		StatusCode: http.StatusInternalServerError,
		Headers:    api.NewHeaders().Set("content-type", "text/plain"),
		Chunk:      []byte("something went wrong"),
	}); err != nil {
		return err
	}

	// A response that mixes two body representations is rejected.
	bad := &api.Response{JSON: map[string]string{"a": "b"}, Chunk: []byte("c")}
	fmt.Printf("[1] Validating a malformed response: %v\n", api.ValidateResponse(bad, true, false))

	for _, kind := range transport.EventKinds {
		stack.On(kind, func(ev transport.Event) {
			line := fmt.Sprintf("    event %-26s", ev.Kind)
			if ev.State != nil {
				line += fmt.Sprintf(" phase=%s", ev.State.Phase())
			}
			if ev.Err != nil {
				line += " err=" + ev.Err.Error()
			}
			fmt.Println(line)
		})
	}

	started := make(chan struct{})
	if err := stack.Finalize(func(ctx context.Context, req *api.Request) (*api.Response, error) {
		switch req.Pathname {
		case "/json":
			return &api.Response{JSON: map[string]string{"id": req.ID, "hello": "world"}}, nil
		case "/stream":
			return &api.Response{Stream: strings.NewReader("streamed body")}, nil
		case "/fail":
			return nil, errors.New("handler failed")
		case "/slow":
			close(started)
			<-ctx.Done()
			return nil, context.Cause(ctx)
		}
		return &api.Response{StatusCode: http.StatusNotFound}, nil
	}); err != nil {
		return err
	}

	srv, err := transporthttp.NewServer(stack)
	if err != nil {
		return err
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for i, path := range []string{"/json", "/stream", "/fail"} {
		fmt.Printf("\n[%d] GET %s\n", i+2, path)
		if err := get(ts.URL + path); err != nil {
			return err
		}
	}

	fmt.Printf("\n[5] GET /slow, then CancelAll\n")
	done := make(chan error, 1)
	go func() { done <- get(ts.URL + "/slow") }()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		return errors.New("slow request did not start")
	}
	fmt.Printf("    cancelled %d in-flight request(s)\n", stack.CancelAll())
	if err := <-done; err != nil {
		return err
	}

	fmt.Println("\n=== demo complete ===")
	return nil
}

func get(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("    -> %d %s %s\n", resp.StatusCode, resp.Header.Get("Content-Type"), body)
	return nil
}
