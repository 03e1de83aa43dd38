package undolog

import (
	"errors"

	"github.com/aretw0/undolog/pkg/domain"
)

// Re-exported so that library users need not import pkg/domain for the common cases.
var (
	ErrNothingToUndo   = domain.ErrNothingToUndo
	ErrNothingToPurge  = domain.ErrNothingToPurge
	ErrAlreadyResolved = domain.ErrAlreadyResolved
	ErrHandleReused    = domain.ErrHandleReused
	ErrRecorderSealed  = domain.ErrRecorderSealed
)

// UsageError reports misuse of a Recorder or Handle.
type UsageError = domain.UsageError

// IsNothing reports whether err is one of the "nothing happened" sentinels.
func IsNothing(err error) bool {
	return errors.Is(err, ErrNothingToUndo) ||
		errors.Is(err, ErrNothingToPurge) ||
		errors.Is(err, ErrAlreadyResolved)
}
