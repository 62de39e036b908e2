package trending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"

	"polls/pkg/logger"
)

const lockKey = "polls:trending:lock"

// Deletes the key only if it still holds our token, so an expired lock taken
// over by another instance is left alone.
var releaseScript = redis.NewScript(1, `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisPool dials url lazily. Connect, read and write are each bounded by
// timeout so an unresponsive server can't stall the trending job.
func NewRedisPool(url string, timeout time.Duration) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(url,
				redis.DialConnectTimeout(timeout),
				redis.DialReadTimeout(timeout),
				redis.DialWriteTimeout(timeout),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

type RedisLock struct {
	pool *redis.Pool
	key  string
	ttl  time.Duration
}

// NewRedisLock returns a lock that expires after ttl even if the holder dies.
func NewRedisLock(pool *redis.Pool, ttl time.Duration) *RedisLock {
	return &RedisLock{pool: pool, key: lockKey, ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context) (func(), bool, error) {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("trending/lock: can't get redis conn: %w", err)
	}
	defer conn.Close()

	token := uuid.NewString()
	_, err = redis.String(conn.Do("SET", l.key, token, "NX", "PX", l.ttl.Milliseconds()))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("trending/lock: SET NX failed: %w", err)
	}

	release := func() {
		c := l.pool.Get()
		defer c.Close()
		if _, err := releaseScript.Do(c, l.key, token); err != nil {
			logger.Log(ctx).Warnw("trending/lock: release failed, lock will expire", "error", err)
		}
	}
	return release, true, nil
}
