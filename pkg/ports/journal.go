package ports

import (
	"context"

	"github.com/aretw0/undolog/pkg/domain"
)

// Journal records lifecycle events of command logs for later inspection.
// It is an audit trail only: the recorded actions themselves are never persisted.
type Journal interface {
	// Append stores one event under e.Log.
	Append(ctx context.Context, e *domain.TxEvent) error

	// Recent returns up to limit of the newest events of the named log, oldest first.
	// A limit <= 0 returns every retained event.
	Recent(ctx context.Context, log string, limit int) ([]domain.TxEvent, error)

	// Clear drops every event of the named log.
	Clear(ctx context.Context, log string) error
}
