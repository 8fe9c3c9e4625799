package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/redis"
)

// ErrRunInProgress is returned when another run holds the run lock
var ErrRunInProgress = errors.New("a match run is already in progress")

// ReleaseFunc gives a held run lock back
type ReleaseFunc func(ctx context.Context) error

// RunLock guarantees at most one run at a time
type RunLock interface {
	Acquire(ctx context.Context) (ReleaseFunc, error)
}

// LocalRunLock serializes runs within one process
type LocalRunLock struct {
	mu sync.Mutex
}

func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{}
}

func (l *LocalRunLock) Acquire(context.Context) (ReleaseFunc, error) {
	if !l.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, nil
}

// RedisRunLock serializes runs across every instance sharing a Redis. While
// held, the lease is extended every ttl/3 so a long run keeps it.
type RedisRunLock struct {
	locker *redis.Locker
	logger ectologger.Logger
	key    string
	ttl    time.Duration
}

// NewRedisRunLock creates a lock that expires after ttl if its holder dies
func NewRedisRunLock(locker *redis.Locker, ttl time.Duration, logger ectologger.Logger) *RedisRunLock {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisRunLock{
		locker: locker,
		logger: logger,
		key:    "match-run",
		ttl:    ttl,
	}
}

func (l *RedisRunLock) Acquire(ctx context.Context) (ReleaseFunc, error) {
	lock, err := l.locker.Acquire(ctx, l.key, l.ttl)
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, err
	}

	heartbeatCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				return
			case <-ticker.C:
				if err := lock.Extend(heartbeatCtx, l.ttl); err != nil {
					l.logger.WithContext(heartbeatCtx).WithError(err).Warn("Failed to extend the run lock")
					return
				}
			}
		}
	}()

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			stop()
			<-done
			err = lock.Release(ctx)
		})
		return err
	}, nil
}
