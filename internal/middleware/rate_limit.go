package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimit allows limit requests per window for each customer, or each
// client IP before authentication. Counters live in Redis so every
// instance shares them. When Redis fails the request is let through.
func RateLimit(client *redis.Client, limit int, window time.Duration, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		who := c.GetString(CustomerIDKey)
		if who == "" {
			who = c.ClientIP()
		}
		key := "api_requests:" + who

		// SET NX gives a new counter its TTL in the same MULTI as the INCR
		var incr *redis.IntCmd
		_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, key, 0, window)
			incr = pipe.Incr(ctx, key)
			return nil
		})
		if err != nil {
			log.WithError(err).Warn("rate limit unavailable")
			c.Next()
			return
		}

		count := incr.Val()
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			ttl, _ := client.TTL(ctx, key).Result()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": int(ttl.Seconds()),
			})
			return
		}
		c.Next()
	}
}
