package undolog

import (
	"fmt"

	"github.com/aretw0/undolog/pkg/domain"
)

// Handle is the capability returned by Commit and Merge. It undoes exactly one
// transaction, wherever that transaction sits in the log.
type Handle struct {
	m       *Manager
	id      domain.TxID
	invoked bool
}

// ID returns the identity of the transaction this handle controls.
func (h *Handle) ID() domain.TxID { return h.id }

// Pending reports whether the handle can still undo its transaction.
func (h *Handle) Pending() bool {
	return !h.invoked && h.m.log.find(h.id) != nil
}

// Undo reverses the handle's transaction and returns the remaining log length.
//
// A second call on the same handle is a UsageError. If the transaction already
// left the log through Undo, Purge or Merge, ErrAlreadyResolved is returned and
// nothing runs.
func (h *Handle) Undo() (int, error) {
	if h.invoked {
		return h.m.log.len(), &domain.UsageError{Op: "handle", TxID: h.id, Err: domain.ErrHandleReused}
	}
	h.invoked = true

	tx := h.m.log.find(h.id)
	if tx == nil {
		h.m.logger.Debug("handle already resolved", "log", h.m.name, "tx", h.id)
		return h.m.log.len(), domain.ErrAlreadyResolved
	}
	if err := h.m.undoTx(tx, "handle"); err != nil {
		if domain.IsUsageError(err) {
			return h.m.log.len(), err
		}
		return h.m.log.len(), fmt.Errorf("undo transaction %d: %w", tx.id, err)
	}
	return h.m.log.len(), nil
}
