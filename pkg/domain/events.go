package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCommit EventType = "commit"
	EventUndo   EventType = "undo"
	EventPurge  EventType = "purge"
	EventMerge  EventType = "merge"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Log       string    `json:"log"` // Name of the emitting log (session ID for registry-owned logs)
}

// TxEvent describes a change to a command log.
type TxEvent struct {
	EventBase
	TxID      TxID   `json:"tx_id"`
	Label     string `json:"label,omitempty"`
	Steps     int    `json:"steps"`
	Merged    []TxID `json:"merged,omitempty"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for log observability.
// Hooks run synchronously after the change has been applied.
type LifecycleHooks struct {
	OnCommit func(context.Context, *TxEvent)
	OnUndo   func(context.Context, *TxEvent)
	OnPurge  func(context.Context, *TxEvent)
	OnMerge  func(context.Context, *TxEvent)
}

// Emit dispatches the event to the hook matching its type.
func (h LifecycleHooks) Emit(ctx context.Context, e *TxEvent) {
	var fn func(context.Context, *TxEvent)
	switch e.Type {
	case EventCommit:
		fn = h.OnCommit
	case EventUndo:
		fn = h.OnUndo
	case EventPurge:
		fn = h.OnPurge
	case EventMerge:
		fn = h.OnMerge
	}
	if fn != nil {
		fn(ctx, e)
	}
}

// CombineHooks returns hooks that call each of the given hooks in order.
func CombineHooks(all ...LifecycleHooks) LifecycleHooks {
	each := func(pick func(LifecycleHooks) func(context.Context, *TxEvent)) func(context.Context, *TxEvent) {
		var fns []func(context.Context, *TxEvent)
		for _, h := range all {
			if fn := pick(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *TxEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}
	return LifecycleHooks{
		OnCommit: each(func(h LifecycleHooks) func(context.Context, *TxEvent) { return h.OnCommit }),
		OnUndo:   each(func(h LifecycleHooks) func(context.Context, *TxEvent) { return h.OnUndo }),
		OnPurge:  each(func(h LifecycleHooks) func(context.Context, *TxEvent) { return h.OnPurge }),
		OnMerge:  each(func(h LifecycleHooks) func(context.Context, *TxEvent) { return h.OnMerge }),
	}
}
