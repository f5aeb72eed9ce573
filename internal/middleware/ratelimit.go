package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Time window for rate limiting
	KeyPrefix         string        // Redis key prefix
}

type fixedWindow struct {
	client *redis.Client
	config RateLimitConfig
}

// hit counts one request of clientID and returns the count so far in the
// current window and the time left until the window resets
func (f fixedWindow) hit(ctx context.Context, clientID string) (int64, time.Duration, error) {
	key := fmt.Sprintf("%s:%s", f.config.KeyPrefix, clientID)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	left := ttl.Val()
	if left <= 0 {
		// first hit of a window, or a counter that lost its expiry
		if err := f.client.PExpire(ctx, key, f.config.Window).Err(); err != nil {
			return 0, 0, err
		}
		left = f.config.Window
	}

	return incr.Val(), left, nil
}

// RateLimitMiddleware implements fixed-window rate limiting using Redis.
// Clients are keyed by user id when authenticated and by host otherwise.
// A nil client disables limiting; Redis errors let the request through.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limiter := fixedWindow{client: redisClient, config: config}

	return func(next http.Handler) http.Handler {
		if redisClient == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientIP(r.RemoteAddr)
			if userID, ok := GetUserID(r.Context()); ok {
				clientID = userID
			}

			count, left, err := limiter.hit(r.Context(), clientID)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request",
					zap.String("client_id", clientID),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			remaining := config.RequestsPerWindow - int(count)
			if remaining < 0 {
				remaining = 0
			}
			header := w.Header()
			header.Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			header.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(left).Unix(), 10))

			if count > int64(config.RequestsPerWindow) {
				header.Set("Retry-After", strconv.Itoa(int(math.Ceil(left.Seconds()))))
				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.String("path", r.URL.Path),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP drops the port so one client shares a counter across connections
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
