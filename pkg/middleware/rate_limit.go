package middleware

import (
	"net/http"
	"time"

	"bitwise74/todo-api/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	TTL               time.Duration // How long an idle visitor is remembered
}

// RateLimiterMiddleware limits requests per client IP with a token bucket.
// Visitors are kept in a ttlcache so idle ones fall out on their own.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}

	if config.Burst < config.RequestsPerSecond {
		config.Burst = config.RequestsPerSecond
	}

	visitors := ttlcache.NewCache()
	_ = visitors.SetTTL(config.TTL)
	visitors.SetLoaderFunction(func(string) (any, time.Duration, error) {
		return rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst), config.TTL, nil
	})

	return func(c *gin.Context) {
		v, err := visitors.Get(c.ClientIP())
		if err != nil {
			zap.L().Warn("Failed to load rate limiter", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
			c.Next()
			return
		}

		if !v.(*rate.Limiter).Allow() {
			metrics.RateLimited.Inc()

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many requests",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
