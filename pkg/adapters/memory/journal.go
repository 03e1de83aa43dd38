package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/undolog/pkg/domain"
)

// Journal implements ports.Journal in memory.
// Safe for concurrent use.
type Journal struct {
	data   map[string][]domain.TxEvent
	maxLen int
	mu     sync.RWMutex
}

// NewJournal creates an in-memory journal keeping at most maxLen events per log.
// A maxLen <= 0 keeps everything.
func NewJournal(maxLen int) *Journal {
	return &Journal{
		data:   make(map[string][]domain.TxEvent),
		maxLen: maxLen,
	}
}

// Append stores a copy of the event.
func (j *Journal) Append(ctx context.Context, e *domain.TxEvent) error {
	copied := *e
	copied.Merged = slices.Clone(e.Merged)

	j.mu.Lock()
	defer j.mu.Unlock()
	events := append(j.data[e.Log], copied)
	if j.maxLen > 0 && len(events) > j.maxLen {
		events = slices.Clone(events[len(events)-j.maxLen:])
	}
	j.data[e.Log] = events
	return nil
}

// Recent returns the newest events of a log, oldest first.
func (j *Journal) Recent(ctx context.Context, log string, limit int) ([]domain.TxEvent, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	events := j.data[log]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	// Copy on read so callers can't mutate the journal through the slice.
	out := make([]domain.TxEvent, len(events))
	for i, e := range events {
		out[i] = e
		out[i].Merged = slices.Clone(e.Merged)
	}
	return out, nil
}

// Clear drops a log's events.
func (j *Journal) Clear(ctx context.Context, log string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.data, log)
	return nil
}
