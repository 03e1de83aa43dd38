package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/undolog"
	"github.com/aretw0/undolog/internal/logging"
	"github.com/aretw0/undolog/pkg/adapters/memory"
	"github.com/aretw0/undolog/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) Append(ctx context.Context, e *domain.TxEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockJournal) Recent(ctx context.Context, log string, limit int) ([]domain.TxEvent, error) {
	args := m.Called(ctx, log, limit)
	return args.Get(0).([]domain.TxEvent), args.Error(1)
}

func (m *mockJournal) Clear(ctx context.Context, log string) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func TestJournalHooks_RecordsEveryEvent(t *testing.T) {
	j := memory.NewJournal(0)
	m := undolog.New(
		undolog.WithName("audited"),
		undolog.WithLifecycleHooks(JournalHooks(j, logging.NewNop())),
	)

	h, err := m.Begin("first").Commit()
	require.NoError(t, err)
	_, err = m.Begin("second").Commit()
	require.NoError(t, err)
	_, err = h.Undo()
	require.NoError(t, err)
	_, err = m.PurgeAll()
	require.NoError(t, err)

	events, err := j.Recent(context.Background(), "audited", 0)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, domain.EventUndo, events[2].Type)
	assert.Equal(t, h.ID(), events[2].TxID)
	assert.Equal(t, "second", events[3].Label)
	assert.Equal(t, 0, events[3].Remaining)
}

func TestJournalHooks_FailureDoesNotBreakLog(t *testing.T) {
	j := new(mockJournal)
	j.On("Append", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	m := undolog.New(undolog.WithLifecycleHooks(JournalHooks(j, logging.NewNop())))
	_, err := m.Begin("op").Commit()
	require.NoError(t, err)

	_, err = m.Undo(1)
	require.NoError(t, err)
	j.AssertNumberOfCalls(t, "Append", 2)
}
