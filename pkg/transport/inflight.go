package transport

import (
	"sort"
	"sync"
)

// ActiveSet tracks in-flight operations in insertion order so they can be
// cancelled in bulk. An operation leaves the set when it settles or is
// cancelled; the set never retains settled operations.
//
// All methods are safe for concurrent access.
type ActiveSet struct {
	mu  sync.Mutex
	seq uint64
	ops map[uint64]*Operation
}

// Operation is one tracked in-flight operation.
type Operation struct {
	id     uint64
	set    *ActiveSet
	cancel func(cause error)

	mu   sync.Mutex
	done bool
}

// NewActiveSet creates an empty set.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{ops: make(map[uint64]*Operation)}
}

// Track adds an operation. cancel is called at most once, and never after
// the operation has settled.
func (s *ActiveSet) Track(cancel func(cause error)) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ops == nil {
		s.ops = make(map[uint64]*Operation)
	}
	s.seq++
	op := &Operation{id: s.seq, set: s, cancel: cancel}
	s.ops[op.id] = op
	return op
}

// Len returns the number of tracked operations.
func (s *ActiveSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ops)
}

// CancelAll cancels every operation tracked at the time of the call, in
// insertion order, and returns how many were cancelled. Operations that
// settle concurrently are not cancelled. It is safe to call repeatedly.
func (s *ActiveSet) CancelAll(cause error) int {
	s.mu.Lock()
	snapshot := make([]*Operation, 0, len(s.ops))
	for _, op := range s.ops {
		snapshot = append(snapshot, op)
	}
	s.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].id < snapshot[j].id })

	n := 0
	for _, op := range snapshot {
		if op.Cancel(cause) {
			n++
		}
	}
	return n
}

func (s *ActiveSet) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ops, id)
}

// Cancel cancels the operation with the given cause and removes it from
// its set. It returns false if the operation already settled or was
// cancelled before.
func (o *Operation) Cancel(cause error) bool {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return false
	}
	o.done = true
	o.mu.Unlock()

	o.set.remove(o.id)
	if o.cancel != nil {
		o.cancel(cause)
	}
	return true
}

// Settle removes the operation from its set. A settled operation is never
// cancelled. Settle is idempotent.
func (o *Operation) Settle() {
	o.mu.Lock()
	o.done = true
	o.mu.Unlock()
	o.set.remove(o.id)
}
