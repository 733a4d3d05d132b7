package entrypoint

import (
	"encoding/json"
	"fmt"
)

// Phase is where the contract stands in a swap-and-action request. It is
// persisted alongside the continuations and only ever moves along the
// transitions in next.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingSwap
	PhaseAwaitingAction
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingSwap:
		return "awaiting_swap"
	case PhaseAwaitingAction:
		return "awaiting_action"
	default:
		return fmt.Sprintf("Unknown Phase: %d", int(p))
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "idle":
		*p = PhaseIdle
	case "awaiting_swap":
		*p = PhaseAwaitingSwap
	case "awaiting_action":
		*p = PhaseAwaitingAction
	default:
		return fmt.Errorf("unknown phase %q", s)
	}
	return nil
}

// PhaseEvent moves the phase forward.
type PhaseEvent int

const (
	EventSwapDispatched PhaseEvent = iota
	EventSwapResolved
	EventActionDispatched
	EventActionResolved
)

// String returns the string representation of the PhaseEvent.
func (e PhaseEvent) String() string {
	switch e {
	case EventSwapDispatched:
		return "swap_dispatched"
	case EventSwapResolved:
		return "swap_resolved"
	case EventActionDispatched:
		return "action_dispatched"
	case EventActionResolved:
		return "action_resolved"
	default:
		return fmt.Sprintf("Unknown PhaseEvent: %d", int(e))
	}
}

// next returns the phase after event, or ErrIllegalPhaseTransition.
func (p Phase) next(event PhaseEvent) (Phase, error) {
	switch p {
	case PhaseIdle:
		switch event {
		case EventSwapDispatched:
			return PhaseAwaitingSwap, nil
		case EventActionDispatched:
			return PhaseAwaitingAction, nil
		}
	case PhaseAwaitingSwap:
		if event == EventSwapResolved {
			return PhaseIdle, nil
		}
	case PhaseAwaitingAction:
		if event == EventActionResolved {
			return PhaseIdle, nil
		}
	}

	return p, inconsistent(fmt.Errorf(
		"%w: event %s in phase %s",
		ErrIllegalPhaseTransition, event, p,
	))
}
