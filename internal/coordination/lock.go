// Package coordination guarantees at most one active crawl session across
// harvester processes sharing a Redis instance.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotAcquired means another session holds the lock.
	ErrLockNotAcquired = errors.New("coordination: session lock held elsewhere")
	// ErrLockNotHeld means the lock expired or was taken over before release.
	ErrLockNotHeld = errors.New("coordination: session lock not held")
)

// DefaultKey is the Redis key of the crawl session lock.
const DefaultKey = "harvester:session-lock"

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker hands out session locks.
type Locker struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewLocker builds a Locker. ttl must outlive the longest expected session.
func NewLocker(rdb *redis.Client, key string, ttl time.Duration) *Locker {
	if key == "" {
		key = DefaultKey
	}
	return &Locker{rdb: rdb, key: key, ttl: ttl}
}

// Lock is a held session lock.
type Lock struct {
	l     *Locker
	token string
}

// Token identifies the holder; it doubles as the session id in logs.
func (k *Lock) Token() string { return k.token }

// Acquire takes the lock or returns ErrLockNotAcquired.
func (l *Locker) Acquire(ctx context.Context) (*Lock, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{l: l, token: token}, nil
}

// Release drops the lock if this holder still owns it.
func (k *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, k.l.rdb, []string{k.l.key}, k.token).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", k.l.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
