package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/undolog/internal/logging"
	"github.com/aretw0/undolog/pkg/domain"
	"github.com/aretw0/undolog/pkg/ports"
	"github.com/google/uuid"
)

// ErrSessionExists is returned by Create when the ID is already taken.
var ErrSessionExists = errors.New("session already exists")

// Factory builds the value held by a new session.
type Factory[T any] func(id string) (T, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager is a registry of sessions that serializes every operation on one session.
// Values that implement io.Closer are closed when their session is deleted.
// It uses reference counting to garbage collect unused locks.
type Manager[T any] struct {
	factory Factory[T]

	mu       sync.Mutex // guards sessions and locks
	sessions map[string]T
	locks    map[string]*lockEntry

	opts options
}

type options struct {
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	logger   *slog.Logger
	onDelete func(id string)
}

// Option configures the Manager.
type Option func(*options)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock outlives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOnDelete registers a callback run after a session is removed.
func WithOnDelete(fn func(id string)) Option {
	return func(o *options) {
		o.onDelete = fn
	}
}

// NewManager creates an empty registry.
func NewManager[T any](factory Factory[T], opts ...Option) *Manager[T] {
	m := &Manager[T]{
		factory:  factory,
		sessions: make(map[string]T),
		locks:    make(map[string]*lockEntry),
		opts: options{
			lockTTL: 30 * time.Second,
			logger:  logging.NewNop(),
		},
	}
	for _, opt := range opts {
		opt(&m.opts)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager[T]) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager[T]) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// lock holds the local and, if configured, the distributed lock for id while fn runs.
func (m *Manager[T]) lock(ctx context.Context, id string, fn func() error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.opts.locker != nil {
		unlock, err := m.opts.locker.Lock(ctx, id, m.opts.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.opts.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn()
}

func (m *Manager[T]) get(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.sessions[id]
	return v, ok
}

// Create registers a new session and returns its ID. An empty id gets a fresh UUID.
func (m *Manager[T]) Create(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	err := m.lock(ctx, id, func() error {
		if _, exists := m.get(id); exists {
			return fmt.Errorf("session %q: %w", id, ErrSessionExists)
		}
		v, err := m.factory(id)
		if err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}

		m.mu.Lock()
		m.sessions[id] = v
		m.mu.Unlock()

		m.opts.logger.Debug("Session created", "session_id", id)
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// WithLock runs fn with exclusive access to the session's value.
func (m *Manager[T]) WithLock(ctx context.Context, id string, fn func(context.Context, T) error) error {
	return m.lock(ctx, id, func() error {
		v, ok := m.get(id)
		if !ok {
			return fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
		}
		return fn(ctx, v)
	})
}

// Delete removes a session and closes its value.
func (m *Manager[T]) Delete(ctx context.Context, id string) error {
	return m.lock(ctx, id, func() error {
		m.mu.Lock()
		v, ok := m.sessions[id]
		delete(m.sessions, id)
		m.mu.Unlock()

		if !ok {
			return fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
		}
		if m.opts.onDelete != nil {
			defer m.opts.onDelete(id)
		}
		if c, ok := any(v).(io.Closer); ok {
			if err := c.Close(); err != nil {
				return fmt.Errorf("failed to close session %q: %w", id, err)
			}
		}
		m.opts.logger.Debug("Session deleted", "session_id", id)
		return nil
	})
}

// List returns the IDs of all sessions, sorted.
func (m *Manager[T]) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of sessions.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close deletes every session. Errors are joined.
func (m *Manager[T]) Close(ctx context.Context) error {
	var errs []error
	for _, id := range m.List() {
		if err := m.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
