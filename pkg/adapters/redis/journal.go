package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aretw0/undolog/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const eventField = "event"

// Journal implements ports.Journal on Redis Streams, one stream per log.
type Journal struct {
	client *backend.Client
	prefix string
	maxLen int64
}

type Option func(*Journal)

// WithPrefix sets the key prefix for streams.
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// WithMaxLen caps each stream (XADD MAXLEN). Zero keeps everything.
func WithMaxLen(n int64) Option {
	return func(j *Journal) {
		j.maxLen = n
	}
}

// New creates a new Redis journal with options.
func New(address, password string, db int, opts ...Option) *Journal {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis journal from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Journal {
	j := &Journal{
		client: client,
		prefix: "undolog:journal:",
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) key(log string) string {
	return j.prefix + log
}

// Append adds the event to the log's stream.
func (j *Journal) Append(ctx context.Context, e *domain.TxEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &backend.XAddArgs{
		Stream: j.key(e.Log),
		MaxLen: j.maxLen,
		Values: map[string]any{eventField: string(data)},
	}
	if err := j.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append to redis stream: %w", err)
	}
	return nil
}

// Recent reads the newest events of a log, oldest first.
func (j *Journal) Recent(ctx context.Context, log string, limit int) ([]domain.TxEvent, error) {
	var (
		msgs []backend.XMessage
		err  error
	)
	if limit > 0 {
		msgs, err = j.client.XRevRangeN(ctx, j.key(log), "+", "-", int64(limit)).Result()
		slices.Reverse(msgs)
	} else {
		msgs, err = j.client.XRange(ctx, j.key(log), "-", "+").Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read redis stream: %w", err)
	}

	events := make([]domain.TxEvent, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values[eventField].(string)
		if !ok {
			return nil, fmt.Errorf("stream entry %s has no %q field", msg.ID, eventField)
		}
		var e domain.TxEvent
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %s: %w", msg.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Clear deletes the log's stream.
func (j *Journal) Clear(ctx context.Context, log string) error {
	return j.client.Del(ctx, j.key(log)).Err()
}

// Ping checks connectivity.
func (j *Journal) Ping(ctx context.Context) error {
	return j.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (j *Journal) Close() error {
	return j.client.Close()
}
