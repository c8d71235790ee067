package middleware

import (
	"net/http"

	"coursereg/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// WebhookRateLimit throttles gateway deliveries before they reach intake.
// One shared limiter: the gateway is a single logical sender, so per-IP
// buckets would not help.
func WebhookRateLimit(cfg config.GatewayConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.WebhookRateLimit), cfg.WebhookRateBurst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
