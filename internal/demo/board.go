package demo

import (
	"slices"

	"github.com/aretw0/undolog"
)

// Greeting is one entry on the board.
type Greeting struct {
	ID    int
	Words []string
	Final bool // set once the greeting's transaction is purged
}

// Board is the shared state mutated by greetings. It knows nothing about the log;
// every mutation is paired with a recorded reversal step.
type Board struct {
	nextID  int
	entries []*Greeting
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{}
}

// removeGreeting reverts the insertion of a greeting. It looks the entry up by ID
// so that greetings can be undone in any order.
type removeGreeting struct {
	board *Board
	id    int
}

func (a removeGreeting) Invoke() error {
	a.board.entries = slices.DeleteFunc(a.board.entries, func(g *Greeting) bool {
		return g.ID == a.id
	})
	return nil
}

// popWord reverts the last word appended to a greeting. It is only valid
// inside the greeting's own transaction, where steps unwind in reverse order.
type popWord struct {
	greeting *Greeting
}

func (a popWord) Invoke() error {
	if n := len(a.greeting.Words); n > 0 {
		a.greeting.Words = a.greeting.Words[:n-1]
	}
	return nil
}

// finalizeGreeting marks a greeting as permanent.
type finalizeGreeting struct {
	greeting *Greeting
}

func (a finalizeGreeting) Invoke() error {
	a.greeting.Final = true
	return nil
}

// Greet adds a ("Hi", name) greeting and records how to take it back.
// It returns the words written and the purge action for the caller's commit.
func (b *Board) Greet(r *undolog.Recorder, name string) ([]string, undolog.CommitOption, error) {
	b.nextID++
	g := &Greeting{ID: b.nextID}

	b.entries = append(b.entries, g)
	if err := r.Record(removeGreeting{board: b, id: g.ID}); err != nil {
		return nil, nil, err
	}

	for _, w := range []string{"Hi", name} {
		g.Words = append(g.Words, w)
		if err := r.Record(popWord{greeting: g}); err != nil {
			return nil, nil, err
		}
	}

	return slices.Clone(g.Words), undolog.WithPurge(finalizeGreeting{greeting: g}), nil
}

// Snapshot copies the board's words, oldest greeting first.
func (b *Board) Snapshot() [][]string {
	out := make([][]string, 0, len(b.entries))
	for _, g := range b.entries {
		out = append(out, slices.Clone(g.Words))
	}
	return out
}

// Entries copies the board's greetings.
func (b *Board) Entries() []Greeting {
	out := make([]Greeting, 0, len(b.entries))
	for _, g := range b.entries {
		c := *g
		c.Words = slices.Clone(g.Words)
		out = append(out, c)
	}
	return out
}

// Len returns the number of greetings on the board.
func (b *Board) Len() int { return len(b.entries) }
