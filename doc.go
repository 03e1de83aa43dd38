/*
Package undolog is a generic undo engine built around a log of reversible transactions.

Client code records one reversal step per mutation, seals the steps into a transaction,
and later reverses, finalizes or coalesces transactions. The engine never looks at the
state being mutated; it only stores and invokes the recorded actions.

# Concept

  - Recorder: the open buffer of one logical operation (Manager.Begin).
  - Commit: seals the buffer into a transaction at the top of the log and returns a Handle.
  - Undo / UndoAll: reverse transactions from the top of the log.
  - Purge / PurgeAll: finalize transactions without reversing them.
  - Merge / MergeAll: coalesce the newest transactions into one.
  - Handle: reverse one specific transaction, wherever it sits in the log, exactly once.

Transactions are addressed by a stable ID, so reversing one from the middle of the log
never disturbs the others. Steps inside a transaction always unwind in reverse recording
order.

# Outcomes

"Nothing happened" results are reported with sentinel errors (ErrNothingToUndo,
ErrNothingToPurge, ErrAlreadyResolved; see IsNothing). Misuse, such as invoking a Handle
twice, is reported with a *domain.UsageError.

# Usage

	m := undolog.New()

	r := m.Begin("greet")
	board = append(board, "Hi")
	r.RecordFunc(func() error { board = board[:len(board)-1]; return nil })
	h, _ := r.Commit()

	h.Undo()  // or m.Undo(1)

A Manager is not safe for concurrent use. Package session provides a registry that
serializes access per session.
*/
package undolog
