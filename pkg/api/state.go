package api

// Phase is a step in the lifecycle of a single request.
type Phase string

const (
	PhaseConstructed Phase = "constructed"
	PhaseDispatched  Phase = "dispatched"
	PhaseResolved    Phase = "resolved"
	PhaseWriting     Phase = "writing"
	PhaseFinished    Phase = "finished"
	PhaseCancelled   Phase = "cancelled"
	PhaseErrored     Phase = "errored"
)

// phaseTransitions lists the allowed successors of each phase. An empty
// "from" phase is the state before the request has been constructed.
var phaseTransitions = map[Phase][]Phase{
	"":               {PhaseConstructed, PhaseErrored},
	PhaseConstructed: {PhaseDispatched, PhaseErrored, PhaseCancelled},
	PhaseDispatched:  {PhaseResolved, PhaseErrored, PhaseCancelled},
	PhaseResolved:    {PhaseWriting, PhaseErrored, PhaseCancelled},
	PhaseWriting:     {PhaseFinished, PhaseErrored, PhaseCancelled},
	PhaseFinished:    {}, // terminal
	PhaseCancelled:   {}, // terminal
	PhaseErrored:     {}, // terminal
}

// Terminal reports whether p allows no further transitions.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseCancelled || p == PhaseErrored
}

// ValidatePhaseTransition checks whether moving from one phase to another is
// allowed. Terminal phases do not allow outgoing transitions.
func ValidatePhaseTransition(from, to Phase) error {
	allowed, exists := phaseTransitions[from]
	if !exists {
		return violation("phase", "invalid transition from %q to %q", from, to)
	}
	for _, p := range allowed {
		if p == to {
			return nil
		}
	}
	return violation("phase", "invalid transition from %q to %q", from, to)
}
