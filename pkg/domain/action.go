package domain

import (
	"errors"
	"time"
)

// Action is a reversal or finalization step. The engine only stores and invokes
// actions; it never inspects the state they capture.
type Action interface {
	Invoke() error
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func() error

// Invoke calls f.
func (f ActionFunc) Invoke() error {
	if f == nil {
		return nil
	}
	return f()
}

// Noop is an Action that does nothing.
var Noop Action = ActionFunc(nil)

// Sequence invokes its actions in slice order.
// Every action runs even if an earlier one fails; the failures are joined.
type Sequence []Action

// Invoke runs each action in order and returns the joined errors.
func (s Sequence) Invoke() error {
	var errs []error
	for _, a := range s {
		if a == nil {
			continue
		}
		if err := a.Invoke(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reverse returns a Sequence with the actions of steps in reverse order.
func Reverse(steps []Action) Sequence {
	out := make(Sequence, 0, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		out = append(out, steps[i])
	}
	return out
}

// TxID identifies a transaction within one log. IDs are assigned from a
// monotonic counter and are never reused by the same log.
type TxID uint64

// TxInfo is a read-only description of a sealed transaction.
type TxInfo struct {
	ID          TxID      `json:"id"`
	Label       string    `json:"label,omitempty"`
	Steps       int       `json:"steps"`
	Merged      []TxID    `json:"merged,omitempty"`
	CommittedAt time.Time `json:"committed_at"`
}
