// Package distlock provides best-effort distributed locks used to keep
// campaign jobs and dispatcher ticks single-flight across instances.
// Correctness of event processing does not depend on these locks; the
// per-event conditional claim in the repository is the real guard.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is the interface for a distributed lock instance. A Lock is for use
// from a single goroutine; create one per attempt.
type Lock interface {
	// Acquire tries to take the lock. Returns true on success.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if still owned.
	Release(ctx context.Context) error
}

// Factory creates locks for named resources using the best available
// backend: Redis when a client is configured, otherwise Postgres advisory
// locks.
type Factory struct {
	redisClient *redis.Client
	db          *sql.DB
	ttl         time.Duration
}

// NewFactory creates a lock factory. redisClient may be nil.
func NewFactory(redisClient *redis.Client, db *sql.DB, ttl time.Duration) *Factory {
	return &Factory{redisClient: redisClient, db: db, ttl: ttl}
}

// ForKey returns a lock instance for the given resource key.
func (f *Factory) ForKey(key string) Lock {
	if f.redisClient != nil {
		return newRedisLock(f.redisClient, key, f.ttl)
	}
	return newAdvisoryLock(f.db, key)
}

// advisoryLock implements Lock over pg_try_advisory_lock. The lock is
// session-scoped and drops with the connection, which gives crash safety
// comparable to a Redis TTL.
type advisoryLock struct {
	db     *sql.DB
	lockID int64
}

func newAdvisoryLock(db *sql.DB, key string) *advisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &advisoryLock{db: db, lockID: int64(h.Sum64())}
}

func (l *advisoryLock) Acquire(ctx context.Context) (bool, error) {
	var ok bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&ok)
	return ok, err
}

func (l *advisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
