package demo

import (
	"errors"
	"fmt"

	"github.com/aretw0/undolog"
	"github.com/aretw0/undolog/pkg/domain"
)

// ErrUnknownHandle is returned when a transaction ID was never handed out by the session.
var ErrUnknownHandle = errors.New("unknown transaction handle")

// Session bundles a board, the log that guards it and the handles returned by commits.
// Like undolog.Manager it is not safe for concurrent use.
type Session struct {
	ID      string
	Log     *undolog.Manager
	Board   *Board
	handles map[domain.TxID]*undolog.Handle
}

// View is a serializable snapshot of a session.
type View struct {
	ID    string          `json:"id"`
	Board [][]string      `json:"board"`
	Log   []domain.TxInfo `json:"log"`
}

// NewSession creates a session whose log is named after id.
func NewSession(id string, opts ...undolog.Option) *Session {
	opts = append([]undolog.Option{undolog.WithName(id)}, opts...)
	return &Session{
		ID:      id,
		Log:     undolog.New(opts...),
		Board:   NewBoard(),
		handles: make(map[domain.TxID]*undolog.Handle),
	}
}

// Greet records a greeting as one transaction.
func (s *Session) Greet(name string) (domain.TxID, []string, error) {
	r := s.Log.Begin("hi " + name)
	words, purge, err := s.Board.Greet(r, name)
	if err != nil {
		return 0, nil, err
	}
	h, err := r.Commit(purge)
	if err != nil {
		return 0, nil, err
	}
	s.handles[h.ID()] = h
	return h.ID(), words, nil
}

// Undo reverses count transactions, or all of them.
func (s *Session) Undo(count int, all bool) (int, error) {
	if all {
		return s.Log.UndoAll()
	}
	return s.Log.Undo(count)
}

// Purge finalizes count transactions, or all of them.
func (s *Session) Purge(count int, all bool) (int, error) {
	if all {
		return s.Log.PurgeAll()
	}
	return s.Log.Purge(count)
}

// Merge coalesces the newest last transactions, or all of them, and returns the new ID.
func (s *Session) Merge(last int, all bool) domain.TxID {
	var h *undolog.Handle
	if all {
		h = s.Log.MergeAll()
	} else {
		h = s.Log.Merge(last)
	}
	s.handles[h.ID()] = h
	return h.ID()
}

// UndoHandle invokes the handle returned for transaction id.
func (s *Session) UndoHandle(id domain.TxID) (int, error) {
	h, ok := s.handles[id]
	if !ok {
		return s.Log.Len(), fmt.Errorf("transaction %d: %w", id, ErrUnknownHandle)
	}
	return h.Undo()
}

// View snapshots the board and the log.
func (s *Session) View() View {
	return View{
		ID:    s.ID,
		Board: s.Board.Snapshot(),
		Log:   s.Log.Entries(),
	}
}

// Close finalizes the session's log.
func (s *Session) Close() error {
	clear(s.handles)
	return s.Log.Close()
}
