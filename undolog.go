package undolog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/undolog/internal/logging"
	"github.com/aretw0/undolog/pkg/domain"
)

// Manager owns one command log. It is not safe for concurrent use; callers that
// share a Manager must serialize access (see pkg/session).
type Manager struct {
	name   string
	log    commandLog
	nextID domain.TxID
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// Option defines a functional option for configuring the Manager.
type Option func(*Manager)

// WithName labels the log in events and log lines.
func WithName(name string) Option {
	return func(m *Manager) {
		m.name = name
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithClock overrides the time source used for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates an empty Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	return m
}

// Name returns the name given with WithName.
func (m *Manager) Name() string { return m.name }

// Begin opens a recorder for one logical operation.
func (m *Manager) Begin(label string) *Recorder {
	return &Recorder{m: m, label: label}
}

// Len returns the number of transactions in the log.
func (m *Manager) Len() int { return m.log.len() }

// Entries describes the log, oldest transaction first.
func (m *Manager) Entries() []domain.TxInfo { return m.log.infos() }

// Peek describes the transaction the next Undo would reverse.
func (m *Manager) Peek() (domain.TxInfo, bool) {
	tx := m.log.top()
	if tx == nil {
		return domain.TxInfo{}, false
	}
	return tx.info(), true
}

// Undo reverses up to count transactions from the top of the log and returns
// the remaining length. It returns ErrNothingToUndo when the log is empty or count < 1.
//
// The sweep stops at the first transaction whose steps report an error; that
// transaction is still removed from the log.
func (m *Manager) Undo(count int) (int, error) {
	if m.log.len() == 0 || count < 1 {
		return m.log.len(), domain.ErrNothingToUndo
	}
	return m.undo(min(count, m.log.len()))
}

// UndoAll reverses every transaction in the log.
func (m *Manager) UndoAll() (int, error) {
	if m.log.len() == 0 {
		return 0, domain.ErrNothingToUndo
	}
	return m.undo(m.log.len())
}

func (m *Manager) undo(n int) (int, error) {
	for i := 0; i < n; i++ {
		// Re-read the top every time: a step may have resolved other entries through their handles.
		tx := m.log.top()
		if tx == nil {
			break
		}
		if err := m.undoTx(tx, "undo"); err != nil {
			if domain.IsUsageError(err) {
				return m.log.len(), err
			}
			return m.log.len(), fmt.Errorf("undo transaction %d: %w", tx.id, err)
		}
	}
	return m.log.len(), nil
}

// undoTx is the single undo routine shared by global undo and handles.
// Removal from the log is always its final step.
func (m *Manager) undoTx(tx *transaction, op string) error {
	if tx.resolved {
		return &domain.UsageError{Op: op, TxID: tx.id, Err: domain.ErrHandleReused}
	}
	tx.resolved = true

	err := tx.undo.Invoke()
	m.log.remove(tx.id)

	if err != nil {
		m.logger.Warn("undo incomplete", "log", m.name, "tx", tx.id, "label", tx.label, "err", err)
	} else {
		m.logger.Debug("undo", "log", m.name, "tx", tx.id, "label", tx.label, "remaining", m.log.len())
	}
	m.emit(domain.EventUndo, tx, err)
	return err
}

// Purge finalizes up to count transactions from the top of the log without
// reversing them. It returns ErrNothingToPurge when the log is empty or count < 1.
//
// The selection is detached before any purge action runs, so every selected
// action runs and failures are joined.
func (m *Manager) Purge(count int) (int, error) {
	if m.log.len() == 0 || count < 1 {
		return m.log.len(), domain.ErrNothingToPurge
	}
	return m.purge(count)
}

// PurgeAll finalizes every transaction in the log.
func (m *Manager) PurgeAll() (int, error) {
	if m.log.len() == 0 {
		return 0, domain.ErrNothingToPurge
	}
	return m.purge(m.log.len())
}

func (m *Manager) purge(n int) (int, error) {
	group := m.log.popN(n)
	var errs []error
	for i := len(group) - 1; i >= 0; i-- {
		tx := group[i]
		tx.resolved = true
		err := tx.purge.Invoke()
		if err != nil {
			m.logger.Warn("purge incomplete", "log", m.name, "tx", tx.id, "label", tx.label, "err", err)
			errs = append(errs, fmt.Errorf("purge transaction %d: %w", tx.id, err))
		} else {
			m.logger.Debug("purge", "log", m.name, "tx", tx.id, "label", tx.label)
		}
		m.emit(domain.EventPurge, tx, err)
	}
	return m.log.len(), errors.Join(errs...)
}

// Merge coalesces the newest last transactions into one and returns its Handle.
// last is clamped to [0, Len()]. Merging zero entries yields an empty transaction;
// merging one yields a passthrough wrapper. Handles of the absorbed transactions
// report ErrAlreadyResolved from then on.
func (m *Manager) Merge(last int) *Handle {
	return m.merge(last)
}

// MergeAll coalesces the whole log into one transaction.
func (m *Manager) MergeAll() *Handle {
	return m.merge(m.log.len())
}

func (m *Manager) merge(k int) *Handle {
	group := m.log.popN(k)

	tx := &transaction{
		undo:   groupUndo(group),
		purge:  groupPurge(group),
		merged: make([]domain.TxID, 0, len(group)),
	}
	for _, member := range group {
		member.resolved = true
		tx.steps += member.steps
		tx.merged = append(tx.merged, member.id)
	}
	switch len(group) {
	case 0:
		tx.label = "empty merge"
	case 1:
		tx.label = group[0].label
	default:
		tx.label = fmt.Sprintf("merge of %d", len(group))
	}
	return m.push(tx, domain.EventMerge)
}

// push assigns the next ID, appends tx and returns its handle.
func (m *Manager) push(tx *transaction, kind domain.EventType) *Handle {
	m.nextID++
	tx.id = m.nextID
	tx.committedAt = m.now()
	m.log.push(tx)

	m.logger.Debug(string(kind), "log", m.name, "tx", tx.id, "label", tx.label, "steps", tx.steps)
	m.emit(kind, tx, nil)
	return &Handle{m: m, id: tx.id}
}

// Close finalizes everything left in the log.
func (m *Manager) Close() error {
	if _, err := m.PurgeAll(); err != nil && !errors.Is(err, domain.ErrNothingToPurge) {
		return err
	}
	return nil
}

func (m *Manager) emit(kind domain.EventType, tx *transaction, err error) {
	e := &domain.TxEvent{
		EventBase: domain.EventBase{
			Timestamp: m.now(),
			Type:      kind,
			Log:       m.name,
		},
		TxID:      tx.id,
		Label:     tx.label,
		Steps:     tx.steps,
		Merged:    tx.merged,
		Remaining: m.log.len(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	m.hooks.Emit(context.Background(), e)
}
