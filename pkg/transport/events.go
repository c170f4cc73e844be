package transport

import (
	"log/slog"
	"sync"
)

// EventKind identifies a lifecycle notification.
type EventKind int

const (
	// EventRequest follows construction of the request, before the chain
	// is called.
	EventRequest EventKind = iota

	// EventCancelError reports a cancel-kind failure.
	EventCancelError

	// EventTimeoutError reports a timeout-kind failure.
	EventTimeoutError

	// EventInternalError reports any other failure.
	EventInternalError

	// EventResponse reports a validated response right before its head is
	// written.
	EventResponse

	// EventResponseFinish reports that the response has been flushed.
	EventResponseFinish

	// EventResponseCancel reports that the write was cancelled before it
	// finished.
	EventResponseCancel

	// EventStreamingError reports a failing response stream. The outbound
	// message has been destroyed.
	EventStreamingError

	// EventStreamObservationFailed reports that the out-of-band error
	// observer could not be attached to a response stream. The write
	// continues.
	EventStreamObservationFailed
)

// EventKinds lists every notification kind.
var EventKinds = []EventKind{
	EventRequest,
	EventCancelError,
	EventTimeoutError,
	EventInternalError,
	EventResponse,
	EventResponseFinish,
	EventResponseCancel,
	EventStreamingError,
	EventStreamObservationFailed,
}

func (k EventKind) String() string {
	switch k {
	case EventRequest:
		return "request"
	case EventCancelError:
		return "cancel_error"
	case EventTimeoutError:
		return "timeout_error"
	case EventInternalError:
		return "internal_error"
	case EventResponse:
		return "response"
	case EventResponseFinish:
		return "response_finish"
	case EventResponseCancel:
		return "response_cancel"
	case EventStreamingError:
		return "streaming_error"
	case EventStreamObservationFailed:
		return "stream_observation_failed"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification. Err is set for the failure kinds.
type Event struct {
	Kind  EventKind
	State *HandlingState
	Err   error
}

// Subscriber receives notifications. It runs synchronously on the request
// goroutine and must not block.
type Subscriber func(Event)

type subscription struct {
	id uint64
	fn Subscriber
}

// eventBus delivers notifications to subscribers in subscription order.
type eventBus struct {
	logger *slog.Logger

	mu   sync.RWMutex
	seq  uint64
	subs map[EventKind][]subscription
}

func (b *eventBus) subscribe(kind EventKind, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[EventKind][]subscription)
	}
	b.seq++
	id := b.seq
	b.subs[kind] = append(b.subs[kind], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subs[kind]
			for i, s := range subs {
				if s.id == id {
					b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// emit calls every subscriber of ev.Kind. A panicking subscriber is logged
// and skipped.
func (b *eventBus) emit(ev Event) {
	b.mu.RLock()
	subs := b.subs[ev.Kind]
	b.mu.RUnlock()

	for _, s := range subs {
		safeCall(b.logger, "subscriber "+ev.Kind.String(), func() { s.fn(ev) })
	}
}
