package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/undolog/internal/logging"
	"github.com/aretw0/undolog/pkg/domain"
	"github.com/aretw0/undolog/pkg/ports"
)

// JournalHooks returns lifecycle hooks that append every event to j.
// Journal failures are logged and never surface to the caller of the log operation.
func JournalHooks(j ports.Journal, logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = logging.NewNop()
	}
	record := func(ctx context.Context, e *domain.TxEvent) {
		if err := j.Append(ctx, e); err != nil {
			logger.Warn("Failed to journal event",
				"log", e.Log,
				"tx", e.TxID,
				"type", e.Type,
				"err", err,
			)
		}
	}
	return domain.LifecycleHooks{
		OnCommit: record,
		OnUndo:   record,
		OnPurge:  record,
		OnMerge:  record,
	}
}
