package pulse

import (
	"bufio"
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time interface guard.
var _ Checker = (*RedisChecker)(nil)

// RedisChecker runs INFO server.
type RedisChecker struct{}

// NewRedisChecker creates a Redis checker.
func NewRedisChecker() *RedisChecker {
	return &RedisChecker{}
}

// Check connects without retries and reports redis_version.
func (c *RedisChecker) Check(ctx context.Context, t Target) Outcome {
	spec, err := specOf[RedisSpec](t)
	if err != nil {
		return ServiceOutcome{Service: KindRedis, Result: Unhealthy("%v", err)}
	}

	client := redis.NewClient(redisOptions(t, spec))
	defer client.Close()

	start := time.Now()
	info, err := client.Info(ctx, "server").Result()
	if err != nil {
		return ServiceOutcome{Service: KindRedis, Result: errorReason("Redis error", err)}
	}

	return ServiceOutcome{
		Service: KindRedis,
		Result:  Healthy(),
		Latency: time.Since(start),
		Info:    "Redis v" + redisVersion(info),
	}
}

func redisOptions(t Target, spec RedisSpec) *redis.Options {
	opts := &redis.Options{
		Addr:       t.Addr(),
		Username:   spec.Username,
		Password:   spec.Password,
		DB:         spec.Database,
		MaxRetries: -1,
		PoolSize:   1,
	}
	if t.Timeout > 0 {
		opts.DialTimeout = t.Timeout
		opts.ReadTimeout = t.Timeout
		opts.WriteTimeout = t.Timeout
	}
	if spec.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: t.Host}
	}
	return opts
}

// redisVersion extracts redis_version from INFO output.
func redisVersion(info string) string {
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "redis_version:"); ok {
			return v
		}
	}
	return "unknown"
}
