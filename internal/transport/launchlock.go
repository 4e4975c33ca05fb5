package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	launchLockKey      = "fetch:stack_launch_lock"
	LaunchLockTTL      = 2 * time.Minute
	launchPollInterval = 200 * time.Millisecond
)

// LocalLaunchLock serialises launches inside one process.
type LocalLaunchLock struct {
	sem chan struct{}
}

func NewLocalLaunchLock() *LocalLaunchLock {
	return &LocalLaunchLock{sem: make(chan struct{}, 1)}
}

func (l *LocalLaunchLock) Lock(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var releaseLaunchLock = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLaunchLock extends the local lock to every worker process sharing the same host stack.
type RedisLaunchLock struct {
	local  *LocalLaunchLock
	client *redis.Client
	logger *zap.SugaredLogger
	nodeID string
	ttl    time.Duration
}

func NewRedisLaunchLock(client *redis.Client, logger *zap.SugaredLogger, nodeID string) *RedisLaunchLock {
	return &RedisLaunchLock{
		local:  NewLocalLaunchLock(),
		client: client,
		logger: logger,
		nodeID: nodeID,
		ttl:    LaunchLockTTL,
	}
}

func (l *RedisLaunchLock) Lock(ctx context.Context) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(launchPollInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, launchLockKey, l.nodeID, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("%w: %w", ErrLaunchBusy, err)
		}

		if acquired {
			l.logger.Debugw("Acquired stack launch lock", "nodeID", l.nodeID)
			return func() {
				l.release()
				unlockLocal()
			}, nil
		}

		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLaunchLock) release() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := releaseLaunchLock.Run(ctx, l.client, []string{launchLockKey}, l.nodeID).Result(); err != nil {
		l.logger.Warnw("Failed to release stack launch lock", "nodeID", l.nodeID, "err", err)
	}
}
