package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/undolog/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalContract runs a suite of tests to verify that a Journal implementation
// adheres to the defined interface contract.
func RunJournalContract(t *testing.T, journal Journal) {
	ctx := context.Background()
	logName := "contract-test-log-" + time.Now().Format("20060102150405")

	event := func(kind domain.EventType, id domain.TxID) *domain.TxEvent {
		return &domain.TxEvent{
			EventBase: domain.EventBase{
				Timestamp: time.Now().UTC().Truncate(time.Millisecond),
				Type:      kind,
				Log:       logName,
			},
			TxID:  id,
			Label: "tx",
			Steps: int(id),
		}
	}

	t.Run("Append and Recent", func(t *testing.T) {
		require.NoError(t, journal.Append(ctx, event(domain.EventCommit, 1)))
		require.NoError(t, journal.Append(ctx, event(domain.EventCommit, 2)))
		merge := event(domain.EventMerge, 3)
		merge.Merged = []domain.TxID{1, 2}
		merge.Remaining = 1
		require.NoError(t, journal.Append(ctx, merge))

		events, err := journal.Recent(ctx, logName, 0)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, domain.TxID(1), events[0].TxID)
		assert.Equal(t, domain.EventMerge, events[2].Type)
		assert.Equal(t, []domain.TxID{1, 2}, events[2].Merged)
		assert.Equal(t, 1, events[2].Remaining)
		assert.Equal(t, logName, events[2].Log)
	})

	t.Run("Recent Limit", func(t *testing.T) {
		events, err := journal.Recent(ctx, logName, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, domain.TxID(2), events[0].TxID, "newest events, oldest first")
		assert.Equal(t, domain.TxID(3), events[1].TxID)
	})

	t.Run("Recent Unknown Log", func(t *testing.T) {
		events, err := journal.Recent(ctx, "non-existent-"+logName, 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, journal.Clear(ctx, logName))

		events, err := journal.Recent(ctx, logName, 0)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
