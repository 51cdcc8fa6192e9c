package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
)

// ErrLeaseLost is returned by Lease.Extend once the key expired or was taken over
var ErrLeaseLost = goerr.New("lock lease lost")

// Locker grants exclusive, expiring ownership of a key. Acquire returns ok=false
// when somebody else holds it; the lease is only valid when ok is true.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lease Lease, ok bool, err error)
}

// Lease is held ownership of a lock key
type Lease interface {
	// Extend pushes the expiry to ttl from now. Returns ErrLeaseLost when the
	// key is no longer ours.
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// releaseScript deletes the key only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a single-instance Redis lock based on SET NX PX
type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to set lock key", goerr.V("key", key))
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{client: l.client, key: key, token: token}, true, nil
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (x *redisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, x.client, []string{x.key}, x.token, ttl.Milliseconds()).Int()
	if err != nil {
		return goerr.Wrap(err, "failed to extend lock", goerr.V("key", x.key))
	}
	if n == 0 {
		return goerr.Wrap(ErrLeaseLost, "lock key is owned by another runner", goerr.V("key", x.key))
	}
	return nil
}

func (x *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, x.client, []string{x.key}, x.token).Err(); err != nil && err != redis.Nil {
		return goerr.Wrap(err, "failed to release lock", goerr.V("key", x.key))
	}
	return nil
}

// LocalLocker is an in-process Locker for single replica deployments and tests
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
}

type localEntry struct {
	token     string
	expiresAt time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]localEntry),
		now:  time.Now,
	}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.held[key]; ok && now.Before(entry.expiresAt) {
		return nil, false, nil
	}

	token := uuid.NewString()
	l.held[key] = localEntry{token: token, expiresAt: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: token}, true, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	token  string
}

func (x *localLease) Extend(_ context.Context, ttl time.Duration) error {
	l := x.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.held[x.key]
	if !ok || entry.token != x.token || !now.Before(entry.expiresAt) {
		return goerr.Wrap(ErrLeaseLost, "lock key is owned by another runner", goerr.V("key", x.key))
	}
	entry.expiresAt = now.Add(ttl)
	l.held[x.key] = entry
	return nil
}

func (x *localLease) Release(context.Context) error {
	l := x.locker
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.held[x.key]; ok && entry.token == x.token {
		delete(l.held, x.key)
	}
	return nil
}
