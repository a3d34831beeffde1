package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/t-voip/gwcheck/internal/probe"
	"github.com/t-voip/gwcheck/internal/retry"
)

// DefaultRetry is the policy used by every source unless a test overrides it.
func DefaultRetry() retry.Policy {
	p := retry.Default(probe.IsTransientLock)
	p.OnRetry = func(attempt int, err error) {
		slog.Warn("database locked, retrying",
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"backoff", p.Backoff,
			"error", err,
		)
	}
	return p
}

// query opens a connection, runs fn and closes the connection again, retrying
// the whole sequence while the database reports a lock.
func query[T any](ctx context.Context, policy retry.Policy, open func(context.Context) (*DB, error), fn func(context.Context, *DB) (T, error)) (T, error) {
	return retry.Do(ctx, policy, func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, DefaultQueryTimeout)
		defer cancel()

		var zero T
		d, err := open(ctx)
		if err != nil {
			return zero, err
		}
		defer d.Close()

		return fn(ctx, d)
	})
}

// SQLiteSource reads Diafaan's SQLite databases.
type SQLiteSource struct {
	Path        string
	BusyTimeout time.Duration
	Retry       retry.Policy
}

// NewSQLiteSource returns a source with the default retry policy.
func NewSQLiteSource(path string, busyTimeout time.Duration) *SQLiteSource {
	return &SQLiteSource{
		Path:        path,
		BusyTimeout: busyTimeout,
		Retry:       DefaultRetry(),
	}
}

func (s *SQLiteSource) open(ctx context.Context) (*DB, error) {
	return OpenSQLite(ctx, s.Path, s.BusyTimeout)
}

// ErrorCount implements the gateway-errors probe source.
func (s *SQLiteSource) ErrorCount(ctx context.Context, gatewayID, statusCode string) (int64, error) {
	return query(ctx, s.Retry, s.open, func(ctx context.Context, d *DB) (int64, error) {
		return d.ErrorCount(ctx, gatewayID, statusCode)
	})
}

// PriorityCount implements the priority-queue probe source.
func (s *SQLiteSource) PriorityCount(ctx context.Context, priority string) (int64, error) {
	return query(ctx, s.Retry, s.open, func(ctx context.Context, d *DB) (int64, error) {
		return d.PriorityCount(ctx, priority)
	})
}

// QueueCounts implements the gateway-queues probe source.
func (s *SQLiteSource) QueueCounts(ctx context.Context, gatewayIDs []int) (map[int]int64, error) {
	return query(ctx, s.Retry, s.open, func(ctx context.Context, d *DB) (map[int]int64, error) {
		return d.QueueCounts(ctx, gatewayIDs)
	})
}

// MessageLog reads the sent-message log of any supported dialect.
type MessageLog struct {
	Dialect string
	DSN     string
	Retry   retry.Policy
}

// NewMessageLog returns a message log source with the default retry policy.
// Only SQLite reports locks, so the other dialects get a single attempt.
func NewMessageLog(dialect, dsn string) *MessageLog {
	return &MessageLog{
		Dialect: dialect,
		DSN:     dsn,
		Retry:   DefaultRetry(),
	}
}

func (m *MessageLog) open(ctx context.Context) (*DB, error) {
	return Open(ctx, m.Dialect, m.DSN)
}

// MessageRate implements the tps probe source.
func (m *MessageLog) MessageRate(ctx context.Context, gateway string, window time.Duration) (float64, error) {
	return query(ctx, m.Retry, m.open, func(ctx context.Context, d *DB) (float64, error) {
		return d.MessageRate(ctx, gateway, window)
	})
}
