// Package lock serializes generation work per interview. Question and report tasks share one
// key per interview, so only one of them runs at a time; a second caller is refused rather
// than queued.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrBusy is returned by TryLock when the key is already held.
var ErrBusy = errors.New("lock: key is held by another task")

// DefaultTTL bounds how long a crashed holder can block a key in the shared backend.
const DefaultTTL = 10 * time.Minute

// Release frees a key taken by TryLock. It is safe to call more than once.
type Release func()

// Locker hands out non-blocking, keyed locks.
type Locker interface {
	TryLock(ctx context.Context, key string) (Release, error)
}

// Key builds the generation lock key of one interview.
func Key(interviewID uint) string {
	return fmt.Sprintf("interview:%d:generation", interviewID)
}

// Local is an in-process Locker for single-replica deployments.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) TryLock(ctx context.Context, key string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrBusy
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only while it still carries our token, so a holder whose TTL
// expired cannot free a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every replica that talks to the same Redis. Release cannot
// report errors to its caller, so failed releases are logged.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{rdb: rdb, prefix: "lock:", ttl: ttl, logger: logger}
}

func (r *Redis) TryLock(ctx context.Context, key string) (Release, error) {
	token := uuid.NewString()
	redisKey := r.prefix + key

	ok, err := r.rdb.SetNX(ctx, redisKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be cancelled when the task finishes
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			deleted, err := releaseScript.Run(releaseCtx, r.rdb, []string{redisKey}, token).Int()
			switch {
			case err != nil:
				r.logger.Warn("Failed to release generation lock, it stays held until its TTL expires",
					zap.String("key", key), zap.Duration("ttl", r.ttl), zap.Error(err))
			case deleted == 0:
				r.logger.Warn("Generation lock expired before release", zap.String("key", key), zap.Duration("ttl", r.ttl))
			}
		})
	}, nil
}

// Noop never refuses. It is used when concurrent generation is acceptable.
type Noop struct{}

func (Noop) TryLock(ctx context.Context, key string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
