package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rhuss/helo/pkg/api"
	"github.com/rhuss/helo/pkg/debug"
)

// ContentTypes are the content-type header values set for the html, json
// and form body representations. Explicit response headers override them.
type ContentTypes struct {
	HTML string
	JSON string
	Form string
}

// DefaultContentTypes returns the content types used when none are
// configured.
func DefaultContentTypes() ContentTypes {
	return ContentTypes{
		HTML: "text/html; charset=utf-8",
		JSON: "application/json; charset=utf-8",
		Form: "application/x-www-form-urlencoded; charset=utf-8",
	}
}

// withDefaults fills empty fields from DefaultContentTypes.
func (c ContentTypes) withDefaults() ContentTypes {
	d := DefaultContentTypes()
	if c.HTML == "" {
		c.HTML = d.HTML
	}
	if c.JSON == "" {
		c.JSON = d.JSON
	}
	if c.Form == "" {
		c.Form = d.Form
	}
	return c
}

// Chunkifiers serialize the json and form body representations.
type Chunkifiers struct {
	JSON func(v any) ([]byte, error)
	Form func(form map[string]any) ([]byte, error)
}

// DefaultChunkifiers returns api.ChunkifyJSON and api.ChunkifyForm.
func DefaultChunkifiers() Chunkifiers {
	return Chunkifiers{
		JSON: api.ChunkifyJSON,
		Form: api.ChunkifyForm,
	}
}

func (c Chunkifiers) withDefaults() Chunkifiers {
	d := DefaultChunkifiers()
	if c.JSON == nil {
		c.JSON = d.JSON
	}
	if c.Form == nil {
		c.Form = d.Form
	}
	return c
}

const streamBufferSize = 32 << 10

// responseWriter writes resolved responses to their outbound message.
type responseWriter struct {
	types       ContentTypes
	chunkifiers Chunkifiers
	events      *eventBus
}

// write validates state.Response and writes it through out. It returns
// once the message has finished, the stream has failed or ctx has been
// cancelled. A cancelled write returns the cancellation cause.
func (w *responseWriter) write(ctx context.Context, state *HandlingState, out *sink) error {
	resp := state.Response
	status := resp.Status()

	if err := api.ValidateResponse(resp, api.AllowBody(state.Method(), status), false); err != nil {
		return err
	}
	if resp.Headers != nil {
		resp.Headers.MarkSent()
	}

	var (
		contentType string
		chunk       []byte
		pieces      [][]byte
		err         error
	)
	switch {
	case resp.Stream != nil:
	case resp.HTML != nil:
		contentType = w.types.HTML
		chunk, pieces = htmlBody(resp.HTML)
	case resp.JSON != nil:
		contentType = w.types.JSON
		if chunk, err = w.chunkifiers.JSON(resp.JSON); err != nil {
			return fmt.Errorf("serializing json body: %w", err)
		}
	case resp.Form != nil:
		contentType = w.types.Form
		if chunk, err = w.chunkifiers.Form(resp.Form); err != nil {
			return fmt.Errorf("serializing form body: %w", err)
		}
	case resp.Chunk != nil:
		chunk = resp.Chunk
	}

	if contentType != "" {
		if err := out.setHeader("Content-Type", contentType); err != nil {
			return sinkError(ctx, err)
		}
	}

	w.events.emit(Event{Kind: EventResponse, State: state})
	state.advance(api.PhaseWriting)

	if err := out.writeHead(status, resp.Headers); err != nil {
		return sinkError(ctx, err)
	}

	streamErr := make(chan error, 1)
	if resp.Stream != nil {
		state.setStreaming(true)
		defer state.setStreaming(false)
		stop := w.pipe(state, resp.Stream, out, streamErr)
		defer stop()
	} else if err := writeBody(out, chunk, pieces); err != nil && !errors.Is(err, errDetached) {
		return err
	}

	select {
	case <-out.out.Finished():
		return w.finish(state)
	case err := <-streamErr:
		w.events.emit(Event{Kind: EventStreamingError, State: state, Err: err})
		out.destroy(err)
		return err
	case <-ctx.Done():
		select {
		case <-out.out.Finished():
			return w.finish(state)
		default:
		}
		if c, ok := resp.Stream.(io.Closer); ok {
			_ = c.Close()
		}
		w.events.emit(Event{Kind: EventResponseCancel, State: state, Err: context.Cause(ctx)})
		return context.Cause(ctx)
	}
}

func (w *responseWriter) finish(state *HandlingState) error {
	state.advance(api.PhaseFinished)
	w.events.emit(Event{Kind: EventResponseFinish, State: state})
	return nil
}

// pipe copies src to out on a new goroutine and reports failures on errc.
// If src implements api.ErrorNotifier, its out-of-band errors are reported
// on errc too. The returned function detaches that observer.
func (w *responseWriter) pipe(state *HandlingState, src io.Reader, out *sink, errc chan<- error) func() {
	fail := func(err error) {
		select {
		case errc <- err:
		default:
		}
	}

	stop := w.observe(state, src, fail)

	go func() {
		buf := make([]byte, streamBufferSize)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				if werr := out.write(buf[:n]); werr != nil {
					if !errors.Is(werr, errDetached) {
						fail(werr)
					}
					return
				}
				debug.Trace("streaming", "chunk written", "bytes", n)
			}
			if errors.Is(err, io.EOF) {
				if eerr := out.end(nil); eerr != nil && !errors.Is(eerr, errDetached) {
					fail(eerr)
				}
				return
			}
			if err != nil {
				fail(err)
				return
			}
		}
	}()

	return stop
}

// observe attaches fail as the out-of-band error observer of src. A failure
// to attach is reported as EventStreamObservationFailed.
func (w *responseWriter) observe(state *HandlingState, src io.Reader, fail func(error)) (stop func()) {
	stop = func() {}
	n, ok := src.(api.ErrorNotifier)
	if !ok {
		return stop
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(r)
			}
		}()
		var detach func()
		detach, err = n.NotifyError(fail)
		if err == nil && detach != nil {
			stop = detach
		}
	}()
	if err != nil {
		w.events.emit(Event{Kind: EventStreamObservationFailed, State: state, Err: err})
	}
	return stop
}

// htmlBody splits an html value into a single chunk or ordered pieces.
func htmlBody(html any) ([]byte, [][]byte) {
	switch v := html.(type) {
	case string:
		return []byte(v), nil
	case []string:
		pieces := make([][]byte, len(v))
		for i, s := range v {
			pieces[i] = []byte(s)
		}
		return nil, pieces
	case []any:
		pieces := make([][]byte, 0, len(v))
		for _, p := range v {
			switch x := p.(type) {
			case string:
				pieces = append(pieces, []byte(x))
			case []byte:
				pieces = append(pieces, x)
			}
		}
		return nil, pieces
	}
	return nil, nil
}

func writeBody(out *sink, chunk []byte, pieces [][]byte) error {
	for _, p := range pieces {
		if err := out.write(p); err != nil {
			return err
		}
	}
	return out.end(chunk)
}

// sinkError returns the cancellation cause if out was detached because ctx
// was cancelled.
func sinkError(ctx context.Context, err error) error {
	if errors.Is(err, errDetached) {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
	}
	return err
}
