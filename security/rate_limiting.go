package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles abusive clients with a fixed window counter per
// key in redis. Without redis it fails open.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Allow counts one hit against the key's window and reports whether the
// request may proceed.
func (r *RateLimiter) Allow(ctx context.Context, scope, client string, limit int, window time.Duration) bool {
	if r.redis == nil || limit <= 0 {
		return true
	}
	key := fmt.Sprintf("ratelimit:%s:%s", scope, client)
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		// Redis being down should not take bookings with it.
		return true
	}
	if count == 1 {
		r.redis.Expire(ctx, key, window)
	}
	return count <= int64(limit)
}

// IsSuspiciousUserAgent flags obvious scripted clients.
func IsSuspiciousUserAgent(ua string) bool {
	if ua == "" {
		return true
	}
	lower := strings.ToLower(ua)
	for _, pattern := range []string{"bot", "crawler", "spider", "scraper"} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// ClientIP resolves the originating address, honoring proxy headers.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
