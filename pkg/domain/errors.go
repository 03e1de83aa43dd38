package domain

import (
	"errors"
	"fmt"
)

// ErrNothingToUndo is returned when Undo is called on an empty log or with a non-positive count.
var ErrNothingToUndo = errors.New("nothing to undo")

// ErrNothingToPurge is returned when Purge is called on an empty log or with a non-positive count.
var ErrNothingToPurge = errors.New("nothing to purge")

// ErrAlreadyResolved is returned by a Handle whose transaction has already left the log
// through another path (global undo, purge or merge).
var ErrAlreadyResolved = errors.New("transaction already resolved")

// ErrHandleReused is wrapped in a UsageError when a transaction's undo is requested twice.
var ErrHandleReused = errors.New("undo handle invoked twice")

// ErrRecorderSealed is wrapped in a UsageError when a committed or rolled back recorder is used again.
var ErrRecorderSealed = errors.New("recorder already sealed")

// ErrSessionNotFound is returned when a session ID is not registered.
var ErrSessionNotFound = errors.New("session not found")

// UsageError reports a caller defect. It is never returned for expected outcomes
// such as an empty log.
type UsageError struct {
	Op   string
	TxID TxID
	Err  error
}

func (e *UsageError) Error() string {
	if e.TxID != 0 {
		return fmt.Sprintf("%s: transaction %d: %v", e.Op, e.TxID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UsageError) Unwrap() error { return e.Err }

// IsUsageError reports whether err carries a UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}
