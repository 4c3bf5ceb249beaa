package httpserver

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimiter is a fixed-window limiter backed by Redis INCR/EXPIRE.
// A nil limiter, or any Redis error, lets the request through.
type RateLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

// NewRateLimiter connects to Redis and pings it. It returns nil when addr is empty
// or Redis is unreachable, which disables limiting.
func NewRateLimiter(addr, password string, db, max int, window time.Duration) *RateLimiter {
	if addr == "" || max <= 0 || window <= 0 {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable; rate limiting disabled")
		_ = rdb.Close()
		return nil
	}
	return &RateLimiter{rdb: rdb, max: max, window: window}
}

// Close releases the Redis connection.
func (l *RateLimiter) Close() error {
	if l == nil {
		return nil
	}
	return l.rdb.Close()
}

// Allow counts one hit for ident and reports whether it is within the window's budget.
// key format: rl:<route>:<window_seconds>:<ident>
func (l *RateLimiter) Allow(ctx context.Context, route, ident string) (bool, error) {
	key := "rl:" + route + ":" + strconv.FormatInt(int64(l.window.Seconds()), 10) + ":" + ident
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		l.rdb.Expire(ctx, key, l.window)
	}
	return n <= int64(l.max), nil
}

// Limit wraps a route. route names the bucket so limits do not leak between endpoints.
func (l *RateLimiter) Limit(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), route, clientIP(r))
			if err != nil {
				log.Warn().Err(err).Str("route", route).Msg("rate limit check failed")
				w.Header().Set("X-RateLimit-Error", "redis-error")
			}
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
				http.Error(w, `{"error":"rate_limited"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr (already rewritten by chi's RealIP).
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
