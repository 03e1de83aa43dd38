package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence_RunsEverythingAndJoinsErrors(t *testing.T) {
	var trace []string
	step := func(name string, err error) Action {
		return ActionFunc(func() error {
			trace = append(trace, name)
			return err
		})
	}
	errB := errors.New("b failed")
	errD := errors.New("d failed")

	err := Sequence{step("a", nil), nil, step("b", errB), step("c", nil), step("d", errD)}.Invoke()

	assert.Equal(t, []string{"a", "b", "c", "d"}, trace)
	assert.ErrorIs(t, err, errB)
	assert.ErrorIs(t, err, errD)
}

func TestReverse(t *testing.T) {
	var trace []int
	steps := make([]Action, 0, 3)
	for i := 1; i <= 3; i++ {
		steps = append(steps, ActionFunc(func() error {
			trace = append(trace, i)
			return nil
		}))
	}

	assert.NoError(t, Reverse(steps).Invoke())
	assert.Equal(t, []int{3, 2, 1}, trace)
	assert.Empty(t, Reverse(nil))
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop.Invoke())
	var nilFunc ActionFunc
	assert.NoError(t, nilFunc.Invoke())
}

func TestUsageError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &UsageError{Op: "handle", TxID: 7, Err: ErrHandleReused})

	assert.True(t, IsUsageError(err))
	assert.ErrorIs(t, err, ErrHandleReused)
	assert.Equal(t, "wrapped: handle: transaction 7: undo handle invoked twice", err.Error())
	assert.Equal(t, "record: recorder already sealed", (&UsageError{Op: "record", Err: ErrRecorderSealed}).Error())
	assert.False(t, IsUsageError(ErrNothingToUndo))
}

func TestCombineHooks(t *testing.T) {
	var calls []string
	record := func(name string) func(context.Context, *TxEvent) {
		return func(_ context.Context, e *TxEvent) {
			calls = append(calls, name+":"+string(e.Type))
		}
	}

	hooks := CombineHooks(
		LifecycleHooks{OnCommit: record("first"), OnUndo: record("first")},
		LifecycleHooks{},
		LifecycleHooks{OnCommit: record("second"), OnPurge: record("second")},
	)
	assert.Nil(t, hooks.OnMerge)

	ctx := context.Background()
	for _, kind := range []EventType{EventCommit, EventUndo, EventPurge, EventMerge} {
		hooks.Emit(ctx, &TxEvent{EventBase: EventBase{Type: kind}})
	}

	assert.Equal(t, []string{"first:commit", "second:commit", "first:undo", "second:purge"}, calls)
}
