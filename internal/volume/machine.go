package volume

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition signals a bug in the mount loop
var ErrIllegalTransition = errors.New("illegal state transition")

// Phase is a step of the mount loop
type Phase int

const (
	Prompting Phase = iota
	Attempting
	Converged
	Aborted
)

func (p Phase) String() string {
	switch p {
	case Prompting:
		return "Prompting"
	case Attempting:
		return "Attempting"
	case Converged:
		return "Converged"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// transitions lists the allowed successors of each phase
var transitions = map[Phase][]Phase{
	Prompting:  {Attempting, Aborted},
	Attempting: {Converged, Prompting},
}

// Terminal reports whether the loop ends in p
func (p Phase) Terminal() bool {
	return len(transitions[p]) == 0
}

// CanTransition reports whether from -> to is allowed
func CanTransition(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks the mount loop phase
type machine struct {
	phase Phase
}

func newMachine() *machine {
	return &machine{phase: Prompting}
}

func (m *machine) to(next Phase) error {
	if !CanTransition(m.phase, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.phase, next)
	}
	m.phase = next
	return nil
}
