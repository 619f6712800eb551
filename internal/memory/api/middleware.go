package api

import (
	"Mnemo_1.0/internal/config"
	"Mnemo_1.0/pkg/circuitbreaker"
	"Mnemo_1.0/pkg/ratelimiter"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware 创建一个限流中间件，超出速率的请求返回 429。
func RateLimitMiddleware(limiter ratelimiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CircuitBreakerMiddleware 创建一个熔断中间件。5xx 响应计为失败，
// 熔断打开期间请求直接返回 503。
func CircuitBreakerMiddleware(cb *circuitbreaker.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cb.Allow() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
			c.Abort()
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			cb.Failure()
		} else {
			cb.Success()
		}
	}
}

// BuildMiddlewares 根据配置构建启用的中间件列表。
func BuildMiddlewares(cfg *config.MiddlewareConfig) []gin.HandlerFunc {
	var middlewares []gin.HandlerFunc

	if cfg.RateLimiter.Enabled {
		middlewares = append(middlewares,
			RateLimitMiddleware(ratelimiter.NewTokenBucket(cfg.RateLimiter.Rate, cfg.RateLimiter.Capacity)))
	}

	if cfg.CircuitBreaker.Enabled {
		timeout, err := time.ParseDuration(cfg.CircuitBreaker.Timeout)
		if err != nil {
			timeout = 30 * time.Second
		}
		middlewares = append(middlewares,
			CircuitBreakerMiddleware(circuitbreaker.New(
				cfg.CircuitBreaker.FailureThreshold,
				cfg.CircuitBreaker.SuccessThreshold,
				timeout)))
	}

	return middlewares
}
