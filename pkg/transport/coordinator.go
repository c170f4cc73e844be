package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/debug"
)

// Handle drives one request through its lifecycle and returns once it has
// settled: the response has been written, the message has been destroyed
// or the request has been cancelled.
func (s *Stack) Handle(in *IncomingMessage, out OutgoingMessage) {
	state := newHandlingState(in, out)

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	guarded := newSink(out)
	defer guarded.detach()

	op := s.active.Track(func(cause error) {
		cancel(cause)
		guarded.detach()
	})
	defer op.Settle()

	stopWatch := watchDisconnect(out, op)
	defer stopWatch()

	if err := s.serve(ctx, state, guarded); err != nil {
		op.Settle()
		// HeadersSent is only final once a write in progress has returned.
		guarded.detach()
		guarded.settle()
		s.fail(state, err)
	}
}

// serve constructs the request, dispatches it and writes the response.
func (s *Stack) serve(ctx context.Context, state *HandlingState, out *sink) error {
	chain, initializers := s.snapshot()
	if chain == nil {
		return api.NewInternalError("handling request", api.ErrNotFinalized)
	}

	in := state.In
	req, err := api.NewRequest(in.Method, in.Header, in.URL, in.Body)
	if err != nil {
		return api.NewInternalError("constructing request", err)
	}
	state.Request = req

	if err := initialize(req, initializers); err != nil {
		return err
	}
	state.advance(api.PhaseConstructed)
	s.events.emit(Event{Kind: EventRequest, State: state})

	state.advance(api.PhaseDispatched)
	debug.Log("transport", "request dispatched", "method", req.Method, "path", req.Path, "request_id", req.ID)

	resp, err := dispatch(ctx, chain, req)
	if err != nil {
		return err
	}
	state.Response = resp
	state.advance(api.PhaseResolved)

	return s.writer.write(ctx, state, out)
}

// initialize runs the initializers in order. A panicking initializer fails
// the request.
func initialize(req *api.Request, initializers []Initializer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	for _, fn := range initializers {
		fn(req)
	}
	return nil
}

type result struct {
	resp *api.Response
	err  error
}

// dispatch calls chain on its own goroutine and waits for the result or for
// ctx to be cancelled, whichever comes first. Cancellation wins a tie.
func dispatch(ctx context.Context, chain Handler, req *api.Request) (*api.Response, error) {
	done := make(chan result, 1)
	go func() {
		resp, err := chain(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		if cause := context.Cause(ctx); cause != nil {
			return nil, cause
		}
		return r.resp, r.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// watchDisconnect cancels op when the client goes away. The returned
// function stops watching.
func watchDisconnect(out OutgoingMessage, op *Operation) func() {
	closed := out.Closed()
	if closed == nil {
		return func() {}
	}
	stop := make(chan struct{})
	go func() {
		select {
		case <-closed:
			op.Cancel(api.ErrClientDisconnected)
		case <-stop:
		}
	}()
	return func() { close(stop) }
}

// fail reports err and ends the message. If nothing has been written yet it
// sends the error response for the failure's status; otherwise it destroys
// the message. A request whose client disconnected is destroyed without
// writing anything.
func (s *Stack) fail(state *HandlingState, err error) {
	kind := api.KindOf(err)
	status := StatusFromKind(kind)

	if kind == api.KindCancel {
		state.advance(api.PhaseCancelled)
	} else {
		state.advance(api.PhaseErrored)
	}
	s.events.emit(Event{Kind: eventForKind(kind), State: state, Err: err})

	out := state.Out
	if errors.Is(err, api.ErrClientDisconnected) {
		out.Destroy(err)
		return
	}
	if out.HeadersSent() {
		out.Destroy(err)
		return
	}

	if werr := s.writeErrorResponse(state, status); werr != nil {
		s.logger.Warn("writing error response failed",
			slog.Int("status", status),
			slog.String("error", werr.Error()),
		)
		out.Destroy(werr)
	}
}

func (s *Stack) writeErrorResponse(state *HandlingState, status int) error {
	out := state.Out
	canned := s.errorResponse(status)
	if canned == nil {
		if err := out.WriteHead(status, nil); err != nil {
			return err
		}
		return out.End(nil)
	}

	if err := out.WriteHead(status, canned.Headers); err != nil {
		return err
	}
	if state.Method() == http.MethodHead {
		return out.End(nil)
	}
	return out.End(canned.Chunk)
}
