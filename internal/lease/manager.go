// Package lease holds a redis-backed lock so that only one process runs a dispatch cycle at a time.
package lease

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const DispatchCycleKey = "lease:scheduler:dispatch-cycle"

const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
else
	return 0
end`

type Manager struct {
	rdb redis.UniversalClient
}

func NewManager(rdb redis.UniversalClient) *Manager {
	return &Manager{rdb: rdb}
}

// Acquire sets the lease only if nobody holds it and reports whether it did.
func (m *Manager) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return m.rdb.SetNX(ctx, key, owner, ttl).Result()
}

// Release deletes the lease only if owner still holds it.
func (m *Manager) Release(ctx context.Context, key, owner string) (bool, error) {
	n, err := m.rdb.Eval(ctx, releaseScript, []string{key}, owner).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordCycle stores a summary of the last cycle and bumps the cycle counter.
func (m *Manager) RecordCycle(ctx context.Context, fields map[string]any) error {
	pipe := m.rdb.TxPipeline()
	pipe.Incr(ctx, "metrics:scheduler:cycles")
	pipe.HSet(ctx, "metrics:scheduler:last", fields)
	_, err := pipe.Exec(ctx)
	return err
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
