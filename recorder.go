package undolog

import (
	"errors"
	"fmt"

	"github.com/aretw0/undolog/pkg/domain"
)

// Recorder accumulates the elementary actions of one logical operation.
// Nothing reaches the log until Commit.
type Recorder struct {
	m      *Manager
	label  string
	steps  []domain.Action
	sealed bool
}

type commitConfig struct {
	label      string
	purge      domain.Action
	extraUndo  domain.Action
	extraPurge domain.Action
}

// CommitOption configures the transaction sealed by Commit.
type CommitOption func(*commitConfig)

// WithLabel overrides the label given to Begin.
func WithLabel(label string) CommitOption {
	return func(c *commitConfig) {
		c.label = label
	}
}

// WithPurge sets the action that finalizes the transaction when it is purged.
func WithPurge(a domain.Action) CommitOption {
	return func(c *commitConfig) {
		c.purge = a
	}
}

// WithExtraUndo appends an action that runs after the recorded steps have been reversed.
func WithExtraUndo(a domain.Action) CommitOption {
	return func(c *commitConfig) {
		c.extraUndo = a
	}
}

// WithExtraPurge appends an action that runs after the purge action.
func WithExtraPurge(a domain.Action) CommitOption {
	return func(c *commitConfig) {
		c.extraPurge = a
	}
}

// Record appends one elementary reversal step to the open buffer.
func (r *Recorder) Record(a domain.Action) error {
	if r.sealed {
		return &domain.UsageError{Op: "record", Err: domain.ErrRecorderSealed}
	}
	if a == nil {
		a = domain.Noop
	}
	r.steps = append(r.steps, a)
	return nil
}

// RecordFunc records fn as an elementary step.
func (r *Recorder) RecordFunc(fn func() error) error {
	return r.Record(domain.ActionFunc(fn))
}

// Len returns the number of recorded steps.
func (r *Recorder) Len() int { return len(r.steps) }

// Commit seals the buffer into a transaction, pushes it onto the log and returns its Handle.
// An empty buffer still produces a (no-op) transaction.
func (r *Recorder) Commit(opts ...CommitOption) (*Handle, error) {
	if r.sealed {
		return nil, &domain.UsageError{Op: "commit", Err: domain.ErrRecorderSealed}
	}
	cfg := commitConfig{label: r.label}
	for _, opt := range opts {
		opt(&cfg)
	}

	undo := domain.Reverse(r.steps)
	if cfg.extraUndo != nil {
		undo = append(undo, cfg.extraUndo)
	}
	tx := &transaction{
		label: cfg.label,
		undo:  undo,
		purge: domain.Sequence{cfg.purge, cfg.extraPurge},
		steps: len(r.steps),
	}

	r.sealed = true
	r.steps = nil
	return r.m.push(tx, domain.EventCommit), nil
}

// Rollback reverts whatever has been recorded so far without touching the log.
// Every step runs even if one fails; failures are joined.
func (r *Recorder) Rollback() error {
	if r.sealed {
		return &domain.UsageError{Op: "rollback", Err: domain.ErrRecorderSealed}
	}
	r.sealed = true
	steps := r.steps
	r.steps = nil
	if err := domain.Reverse(steps).Invoke(); err != nil {
		r.m.logger.Warn("rollback incomplete", "log", r.m.name, "label", r.label, "err", err)
		return err
	}
	r.m.logger.Debug("rolled back", "log", r.m.name, "label", r.label, "steps", len(steps))
	return nil
}

// Do runs fn against a fresh recorder. On success the recorder is committed;
// on failure its steps are rolled back and fn's error is returned.
func (m *Manager) Do(label string, fn func(*Recorder) error, opts ...CommitOption) (*Handle, error) {
	r := m.Begin(label)
	if err := fn(r); err != nil {
		if r.sealed {
			return nil, err
		}
		if rbErr := r.Rollback(); rbErr != nil {
			return nil, errors.Join(err, fmt.Errorf("rollback %q: %w", label, rbErr))
		}
		return nil, err
	}
	return r.Commit(opts...)
}
