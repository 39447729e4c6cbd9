package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitWindow = time.Minute

// RateLimiter allows at most perMinute requests per client IP and route group.
// A nil client disables limiting.
func RateLimiter(client *redis.Client, scope string, perMinute int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if client == nil || perMinute <= 0 {
			ctx.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", scope, ctx.ClientIP())
		reqCtx := ctx.Request.Context()

		count, err := client.Incr(reqCtx, key).Result()
		if err != nil {
			// Redis being down must not lock users out.
			zap.L().Error("could not increment rate limit key", zap.String("key", key), zap.Error(err))
			ctx.Next()
			return
		}

		if count == 1 {
			client.Expire(reqCtx, key, rateLimitWindow)
		}

		if count > perMinute {
			ctx.Header("Retry-After", fmt.Sprintf("%d", int(rateLimitWindow.Seconds())))
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
			return
		}

		ctx.Next()
	}
}

// NewRedisClient parses a redis:// URL. An empty URL yields a nil client.
func NewRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	return redis.NewClient(opts), nil
}
