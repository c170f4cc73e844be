package http

import (
	"context"
	"errors"
	"io"
	"net"
	gohttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/transport"
)

// newTestStack builds a finalized stack with the request ID plugin.
func newTestStack(t *testing.T, h transport.Handler) *transport.Stack {
	t.Helper()
	s := transport.New()
	if err := s.Install(transport.RequestID()); err != nil {
		t.Fatal(err)
	}
	if err := s.Finalize(h); err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestServer(t *testing.T, stack *transport.Stack, opts ...ServerOption) *httptest.Server {
	t.Helper()
	srv, err := NewServer(stack, opts...)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func readBody(t *testing.T, resp *gohttp.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(data)
}

func TestServerJSONResponse(t *testing.T) {
	stack := newTestStack(t, func(_ context.Context, req *api.Request) (*api.Response, error) {
		return &api.Response{JSON: map[string]string{
			"method": req.Method,
			"host":   req.Host,
			"path":   req.Path,
			"q":      req.Query()["q"],
		}}, nil
	})
	ts := newTestServer(t, stack)

	resp, err := gohttp.Get(ts.URL + "/search?q=go")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("content-type = %q", got)
	}
	if !api.ValidateRequestID(resp.Header.Get("X-Request-ID")) {
		t.Errorf("x-request-id = %q", resp.Header.Get("X-Request-ID"))
	}
	host := strings.TrimPrefix(ts.URL, "http://")
	want := `{"host":"` + host + `","method":"GET","path":"/search?q=go","q":"go"}`
	if body != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestServerStreamsRequestBody(t *testing.T) {
	stack := newTestStack(t, func(_ context.Context, req *api.Request) (*api.Response, error) {
		return &api.Response{Stream: req.Body}, nil
	})
	ts := newTestServer(t, stack)

	resp, err := gohttp.Post(ts.URL+"/echo", "text/plain", strings.NewReader("echo me"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if body := readBody(t, resp); body != "echo me" {
		t.Errorf("body = %q", body)
	}
}

func TestServerMaxBodySize(t *testing.T) {
	stack := newTestStack(t, func(_ context.Context, req *api.Request) (*api.Response, error) {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		return &api.Response{Chunk: data}, nil
	})
	ts := newTestServer(t, stack, WithMaxBodySize(8))

	resp, err := gohttp.Post(ts.URL+"/", "text/plain", strings.NewReader(strings.Repeat("x", 64)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != gohttp.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestServerCannedErrorResponse(t *testing.T) {
	stack := newTestStack(t, func(context.Context, *api.Request) (*api.Response, error) {
		return nil, api.NewTimeoutError("upstream too slow")
	})
	if err := stack.SetErrorResponse(&api.Response{
		StatusCode: 504,
		Headers:    api.NewHeaders().Set("content-type", "text/plain"),
		Chunk:      []byte("gateway timeout"),
	}); err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, stack)

	resp, err := gohttp.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != gohttp.StatusGatewayTimeout || body != "gateway timeout" {
		t.Errorf("status = %d body = %q", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/plain" {
		t.Errorf("content-type = %q", got)
	}
}

// brokenStream yields one chunk, then fails.
type brokenStream struct{ sent bool }

func (s *brokenStream) Read(p []byte) (int, error) {
	if !s.sent {
		s.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errors.New("producer failed")
}

func TestServerAbortsOnStreamFailure(t *testing.T) {
	stack := newTestStack(t, func(context.Context, *api.Request) (*api.Response, error) {
		return &api.Response{Stream: &brokenStream{}}, nil
	})
	ts := newTestServer(t, stack)

	resp, err := gohttp.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want 200 (head was already sent)", resp.StatusCode)
	}
	if _, err := io.ReadAll(resp.Body); err == nil {
		t.Error("expected the aborted body to fail to read")
	}
}

func TestServerClientDisconnect(t *testing.T) {
	started := make(chan struct{})
	stack := newTestStack(t, func(ctx context.Context, _ *api.Request) (*api.Response, error) {
		close(started)
		<-ctx.Done()
		return nil, context.Cause(ctx)
	})
	cancelled := make(chan error, 1)
	stack.On(transport.EventCancelError, func(ev transport.Event) { cancelled <- ev.Err })
	ts := newTestServer(t, stack)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := gohttp.NewRequestWithContext(ctx, gohttp.MethodGet, ts.URL+"/", nil)
	go func() {
		resp, err := gohttp.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not start")
	}
	cancel()

	select {
	case err := <-cancelled:
		if !errors.Is(err, api.ErrClientDisconnected) {
			t.Errorf("cancel cause = %v, want ErrClientDisconnected", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request was not cancelled after the client disconnected")
	}
}

func TestNewServerRequiresFinalizedStack(t *testing.T) {
	if _, err := NewServer(transport.New()); !errors.Is(err, api.ErrNotFinalized) {
		t.Errorf("NewServer() = %v, want ErrNotFinalized", err)
	}
}

func TestServerExtraHandler(t *testing.T) {
	stack := newTestStack(t, func(context.Context, *api.Request) (*api.Response, error) {
		return &api.Response{Chunk: []byte("stack")}, nil
	})
	ts := newTestServer(t, stack, WithHandler("/healthz", gohttp.HandlerFunc(func(w gohttp.ResponseWriter, _ *gohttp.Request) {
		w.Write([]byte("ok"))
	})))

	for path, want := range map[string]string{"/healthz": "ok", "/anything": "stack"} {
		resp, err := gohttp.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if body := readBody(t, resp); body != want {
			t.Errorf("GET %s = %q, want %q", path, body, want)
		}
	}
}

func TestServerServeAndShutdown(t *testing.T) {
	stack := newTestStack(t, func(context.Context, *api.Request) (*api.Response, error) {
		return &api.Response{HTML: "<p>up</p>"}, nil
	})
	srv, err := NewServer(stack, WithShutdownTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	resp, err := gohttp.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if body := readBody(t, resp); body != "<p>up</p>" {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerShutdownCancelsInFlightRequests(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	stack := newTestStack(t, func(ctx context.Context, _ *api.Request) (*api.Response, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, context.Cause(ctx)
	})
	srv, err := NewServer(stack)
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go srv.httpServer.Serve(ln)

	statuses := make(chan int, 1)
	go func() {
		resp, err := gohttp.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			statuses <- 0
			return
		}
		resp.Body.Close()
		statuses <- resp.StatusCode
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() = %v, want deadline exceeded", err)
	}

	select {
	case status := <-statuses:
		if status != gohttp.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", status)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("in-flight request did not complete")
	}
	if stack.Active() != 0 {
		t.Errorf("Active() = %d after shutdown, want 0", stack.Active())
	}
}
