package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/wolfman30/leadrelay/pkg/logging"
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps one token bucket per client in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	r        rate.Limit
	b        int
	now      func() time.Time
	swept    time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const staleAfter = 10 * time.Minute

// NewMemoryLimiter allows reqPerSec requests/sec with the given burst per client.
func NewMemoryLimiter(reqPerSec float64, burst int) *MemoryLimiter {
	if burst < 1 {
		burst = 1
	}
	return &MemoryLimiter{
		limiters: make(map[string]*entry),
		r:        rate.Limit(reqPerSec),
		b:        burst,
		now:      time.Now,
	}
}

// Allow consumes one token for key.
func (ml *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := ml.now()
	return ml.limiterFor(key, now).AllowN(now, 1), nil
}

func (ml *MemoryLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	// Evict idle clients so the map does not grow without bound.
	if now.Sub(ml.swept) > staleAfter {
		for k, e := range ml.limiters {
			if now.Sub(e.lastSeen) > staleAfter {
				delete(ml.limiters, k)
			}
		}
		ml.swept = now
	}

	e, ok := ml.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(ml.r, ml.b)}
		ml.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// RedisLimiter is a fixed-window counter shared by every relay instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisLimiter allows limit requests per window per client.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: "leadrelay:ratelimit:",
		now:    time.Now,
	}
}

// Allow increments the client's counter for the current window.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := rl.now().UnixNano() / int64(rl.window)
	redisKey := rl.prefix + key + ":" + strconv.FormatInt(slot, 10)

	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, rl.window)
		return nil
	})
	if err != nil {
		return true, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	return incr.Val() <= rl.limit, nil
}

// RateLimit rejects requests over the limit with 429. Limiter errors fail
// open: a broken Redis must not block lead submissions.
func RateLimit(limiter Limiter, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := clientKey(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable", "error", err)
			}
			if !allowed {
				logger.Warn("rate limit exceeded", "client", key, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey expects chi's RealIP to have already rewritten RemoteAddr.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
