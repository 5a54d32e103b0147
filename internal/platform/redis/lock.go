package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another owner")

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out expiring, owner-checked locks for scheduled jobs that must
// run on one replica at a time.
type Locker struct {
	client redis.UniversalClient
	prefix string
}

// NewLocker creates a locker storing keys under prefix.
func NewLocker(client redis.UniversalClient, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Lock is a held lock.
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// Acquire takes the lock named name for at most ttl.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := l.prefix + name
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{locker: l, key: key, token: token}, nil
}

// Release frees the lock if it is still ours.
func (k *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, k.locker.client, []string{k.key}, k.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", k.key, err)
	}
	return nil
}

// TryLock acquires name and returns its release function.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.Acquire(ctx, name, ttl)
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}
