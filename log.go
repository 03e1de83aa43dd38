package undolog

import (
	"time"

	"github.com/aretw0/undolog/pkg/domain"
)

// transaction is a sealed, atomic unit stored in the command log.
type transaction struct {
	id          domain.TxID
	label       string
	undo        domain.Action
	purge       domain.Action
	resolved    bool
	steps       int
	merged      []domain.TxID
	committedAt time.Time
}

func (t *transaction) info() domain.TxInfo {
	info := domain.TxInfo{
		ID:          t.id,
		Label:       t.label,
		Steps:       t.steps,
		CommittedAt: t.committedAt,
	}
	if len(t.merged) > 0 {
		info.Merged = append([]domain.TxID(nil), t.merged...)
	}
	return info
}

// commandLog is the ordered sequence of sealed transactions, oldest first.
// Entries are located by ID so that removing one never shifts the identity of another.
type commandLog struct {
	entries []*transaction
}

func (l *commandLog) len() int { return len(l.entries) }

func (l *commandLog) push(tx *transaction) {
	l.entries = append(l.entries, tx)
}

func (l *commandLog) top() *transaction {
	if len(l.entries) == 0 {
		return nil
	}
	return l.entries[len(l.entries)-1]
}

func (l *commandLog) index(id domain.TxID) int {
	// Most lookups target recent entries.
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].id == id {
			return i
		}
	}
	return -1
}

func (l *commandLog) find(id domain.TxID) *transaction {
	if i := l.index(id); i >= 0 {
		return l.entries[i]
	}
	return nil
}

// remove splices the entry with the given ID out of the log.
func (l *commandLog) remove(id domain.TxID) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	copy(l.entries[i:], l.entries[i+1:])
	l.entries[len(l.entries)-1] = nil
	l.entries = l.entries[:len(l.entries)-1]
	return true
}

// popN detaches the newest n entries and returns them in chronological order.
func (l *commandLog) popN(n int) []*transaction {
	n = max(0, min(n, len(l.entries)))
	cut := len(l.entries) - n
	group := make([]*transaction, n)
	copy(group, l.entries[cut:])
	clear(l.entries[cut:])
	l.entries = l.entries[:cut]
	return group
}

func (l *commandLog) infos() []domain.TxInfo {
	out := make([]domain.TxInfo, len(l.entries))
	for i, tx := range l.entries {
		out[i] = tx.info()
	}
	return out
}

// groupUndo reverses a merged group: the most recently committed member first.
type groupUndo []*transaction

func (g groupUndo) Invoke() error {
	seq := make(domain.Sequence, 0, len(g))
	for i := len(g) - 1; i >= 0; i-- {
		seq = append(seq, g[i].undo)
	}
	return seq.Invoke()
}

// groupPurge finalizes a merged group in the same order as groupUndo.
type groupPurge []*transaction

func (g groupPurge) Invoke() error {
	seq := make(domain.Sequence, 0, len(g))
	for i := len(g) - 1; i >= 0; i-- {
		seq = append(seq, g[i].purge)
	}
	return seq.Invoke()
}
