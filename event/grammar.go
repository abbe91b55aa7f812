package event

import (
	"errors"
	"fmt"
)

// ErrGrammar is returned by Validate for a sequence that breaks the protocol.
var ErrGrammar = errors.New("event: sequence violates grammar")

// phase is the position in status* token* metadata? (done|error).
type phase int

const (
	phaseStatus phase = iota
	phaseToken
	phaseMetadata
	phaseClosed
)

// Checker validates a sequence incrementally as events are observed.
// The zero value is ready to use.
type Checker struct {
	phase phase
	n     int
}

// Observe checks the next event against the sequence so far.
func (c *Checker) Observe(e Event) error {
	c.n++
	if c.phase == phaseClosed {
		return fmt.Errorf("%w: %s event #%d after terminal event", ErrGrammar, e.Kind, c.n)
	}
	switch e.Kind {
	case Status:
		if c.phase != phaseStatus {
			return fmt.Errorf("%w: status event #%d after output began", ErrGrammar, c.n)
		}
	case Token:
		if c.phase > phaseToken {
			return fmt.Errorf("%w: token event #%d after metadata", ErrGrammar, c.n)
		}
		c.phase = phaseToken
	case Metadata:
		if c.phase == phaseMetadata {
			return fmt.Errorf("%w: duplicate metadata event #%d", ErrGrammar, c.n)
		}
		c.phase = phaseMetadata
	case Done, Error:
		c.phase = phaseClosed
	default:
		return fmt.Errorf("%w: unknown kind %q at #%d", ErrGrammar, e.Kind, c.n)
	}
	return nil
}

// Closed reports whether a terminal event has been observed.
func (c *Checker) Closed() bool {
	return c.phase == phaseClosed
}

// Validate checks a complete sequence: it must match the grammar and end
// with exactly one terminal event.
func Validate(events []Event) error {
	var c Checker
	for _, e := range events {
		if err := c.Observe(e); err != nil {
			return err
		}
	}
	if !c.Closed() {
		return fmt.Errorf("%w: sequence has no terminal event", ErrGrammar)
	}
	return nil
}
