package redis

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when the stored token matches, so
// a runner cannot release a lock that expired and was re-acquired elsewhere.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RunnerLock implements usecase.RunnerLock with a Redis SET NX lease. It
// backs the deployment invariant that at most one runner processes a
// reporting currency at a time.
type RunnerLock struct {
	client *redis.Client
	ttl    time.Duration
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRunnerLock creates a new RunnerLock. The TTL bounds how long a crashed
// runner blocks its successor.
func NewRunnerLock(client *redis.Client, ttl time.Duration) *RunnerLock {
	return &RunnerLock{
		client: client,
		ttl:    ttl,
		prefix: "pnlstats:lock:",
		tokens: make(map[string]string),
	}
}

// Acquire takes the named lock. Returns false when another holder owns it.
func (l *RunnerLock) Acquire(ctx context.Context, name string) (bool, error) {
	token := ulid.Make().String()

	ok, err := l.client.SetNX(ctx, l.prefix+name, token, l.ttl).Result()
	if err != nil || !ok {
		return false, err
	}

	l.mu.Lock()
	l.tokens[name] = token
	l.mu.Unlock()

	return true, nil
}

// Release drops the named lock if this instance still holds it.
func (l *RunnerLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	token, ok := l.tokens[name]
	delete(l.tokens, name)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	return releaseScript.Run(ctx, l.client, []string{l.prefix + name}, token).Err()
}
