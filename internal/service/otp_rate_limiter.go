package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const otpAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

// RedisRateLimiter counts issuance requests per recipient in a fixed window.
type RedisRateLimiter struct {
	client scripter
	window time.Duration
	max    int
	prefix string
}

type scripter interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

func NewRedisRateLimiter(client *redis.Client, window time.Duration, max int) *RedisRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &RedisRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "otp_rl:",
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	seconds := int(l.window.Seconds())
	count, err := l.client.Eval(ctx, otpAllowScript, []string{l.prefix + key}, seconds).Int()
	if err != nil {
		return false, err
	}
	return count <= l.max, nil
}
