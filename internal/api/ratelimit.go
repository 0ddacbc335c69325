package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRateLimitRequests = 120
	defaultRateLimitPrefix   = "studiobook:rl"
)

// RateDecision is the outcome of counting one request against the limit.
type RateDecision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the time left in the current window.
	RetryAfter time.Duration
}

// RedisRateLimiter counts requests per client in fixed windows stored in Redis,
// so every API replica shares the same budget.
type RedisRateLimiter struct {
	rdb      *redis.Client
	requests int
	window   time.Duration
	prefix   string
	now      func() time.Time
}

func NewRedisRateLimiter(rdb *redis.Client, requests int, window time.Duration, prefix string) *RedisRateLimiter {
	if requests <= 0 {
		requests = defaultRateLimitRequests
	}
	if window < time.Millisecond {
		window = time.Minute
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RedisRateLimiter{rdb: rdb, requests: requests, window: window, prefix: prefix, now: time.Now}
}

// Allow records one request for client in the current window.
func (rl *RedisRateLimiter) Allow(ctx context.Context, client string) (RateDecision, error) {
	now := rl.now()
	bucket := now.UnixMilli() / rl.window.Milliseconds()
	windowEnd := time.UnixMilli((bucket + 1) * rl.window.Milliseconds())
	key := rl.prefix + ":" + client + ":" + strconv.FormatInt(bucket, 10)

	var hits *redis.IntCmd
	_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hits = pipe.Incr(ctx, key)
		// Keep the key a little past its window so late replicas still see it.
		pipe.PExpire(ctx, key, rl.window+time.Second)
		return nil
	})
	if err != nil {
		return RateDecision{}, err
	}

	count := int(hits.Val())
	d := RateDecision{
		Allowed:    count <= rl.requests,
		Remaining:  max(rl.requests-count, 0),
		RetryAfter: windowEnd.Sub(now),
	}
	return d, nil
}

// Ping checks the Redis connection.
func (rl *RedisRateLimiter) Ping(ctx context.Context) error {
	return rl.rdb.Ping(ctx).Err()
}

// clientKey identifies the caller by API key when present, otherwise by the
// originating IP. Keys are hashed so secrets never reach Redis.
func clientKey(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		sum := sha256.Sum256([]byte(key))
		return "key:" + hex.EncodeToString(sum[:8])
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return "ip:" + strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return "ip:" + host
	}
	return "ip:" + r.RemoteAddr
}
