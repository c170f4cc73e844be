package api

import (
	"strings"
	"testing"
)

func TestValidatePhaseTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Phase
		to      Phase
		wantErr bool
	}{
		// Valid transitions
		{name: "initial to constructed", from: "", to: PhaseConstructed, wantErr: false},
		{name: "initial to errored (construction failed)", from: "", to: PhaseErrored, wantErr: false},
		{name: "constructed to dispatched", from: PhaseConstructed, to: PhaseDispatched, wantErr: false},
		{name: "dispatched to resolved", from: PhaseDispatched, to: PhaseResolved, wantErr: false},
		{name: "dispatched to cancelled", from: PhaseDispatched, to: PhaseCancelled, wantErr: false},
		{name: "resolved to writing", from: PhaseResolved, to: PhaseWriting, wantErr: false},
		{name: "resolved to errored (invalid response)", from: PhaseResolved, to: PhaseErrored, wantErr: false},
		{name: "writing to finished", from: PhaseWriting, to: PhaseFinished, wantErr: false},
		{name: "writing to cancelled", from: PhaseWriting, to: PhaseCancelled, wantErr: false},
		{name: "writing to errored", from: PhaseWriting, to: PhaseErrored, wantErr: false},

		// Invalid transitions from terminal states
		{name: "finished to writing", from: PhaseFinished, to: PhaseWriting, wantErr: true},
		{name: "finished to cancelled", from: PhaseFinished, to: PhaseCancelled, wantErr: true},
		{name: "cancelled to finished", from: PhaseCancelled, to: PhaseFinished, wantErr: true},
		{name: "errored to finished", from: PhaseErrored, to: PhaseFinished, wantErr: true},

		// Invalid transitions skipping required phases or going backward
		{name: "constructed to writing (skip dispatch)", from: PhaseConstructed, to: PhaseWriting, wantErr: true},
		{name: "dispatched to finished", from: PhaseDispatched, to: PhaseFinished, wantErr: true},
		{name: "writing to resolved (backward)", from: PhaseWriting, to: PhaseResolved, wantErr: true},
		{name: "unknown from phase", from: Phase("bogus"), to: PhaseFinished, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhaseTransition(tt.from, tt.to)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidatePhaseTransition(%q, %q) = nil, want error", tt.from, tt.to)
				} else if !strings.Contains(err.Error(), "invalid transition") {
					t.Errorf("error message %q does not contain \"invalid transition\"", err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("ValidatePhaseTransition(%q, %q) = %v, want nil", tt.from, tt.to, err)
				}
			}
		})
	}
}

func TestPhaseTerminal(t *testing.T) {
	terminal := map[Phase]bool{
		PhaseConstructed: false,
		PhaseDispatched:  false,
		PhaseResolved:    false,
		PhaseWriting:     false,
		PhaseFinished:    true,
		PhaseCancelled:   true,
		PhaseErrored:     true,
	}
	for p, want := range terminal {
		if got := p.Terminal(); got != want {
			t.Errorf("%q.Terminal() = %v, want %v", p, got, want)
		}
	}
}
