package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultLockNamespace seeds the hash that turns a draft id into an
// advisory lock key.
const DefaultLockNamespace int64 = 0x776d6e // "wmn"

// Draft ids span the full bigint range, so the lock key is a 64-bit hash of
// the id seeded with the namespace. A collision only serializes two drafts.
const (
	advisoryLockSQL   = `SELECT pg_advisory_lock(hashtextextended($2::bigint::text, $1))`
	advisoryUnlockSQL = `SELECT pg_advisory_unlock(hashtextextended($2::bigint::text, $1))`
)

// AdvisoryLocker serializes work on a draft across processes with session
// level advisory locks. Each held lock pins one pool connection.
type AdvisoryLocker struct {
	pool      *pgxpool.Pool
	namespace int64
	logger    *slog.Logger
}

// NewAdvisoryLocker creates a locker on pool.
func NewAdvisoryLocker(pool *pgxpool.Pool, namespace int64, logger *slog.Logger) *AdvisoryLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisoryLocker{
		pool:      pool,
		namespace: namespace,
		logger:    logger.With("component", "advisory-locker"),
	}
}

// Lock blocks until the advisory lock for draftID is held or ctx is done.
func (l *AdvisoryLocker) Lock(ctx context.Context, draftID int64) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	if _, err := conn.Exec(ctx, advisoryLockSQL, l.namespace, draftID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock draft %d: %w", draftID, err)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true

		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(uctx, advisoryUnlockSQL, l.namespace, draftID); err != nil {
			// Closing the session drops every lock it holds.
			l.logger.Error("advisory unlock failed, closing connection", "draft_id", draftID, "err", err)
			_ = conn.Conn().Close(uctx)
		}
		conn.Release()
	}, nil
}
