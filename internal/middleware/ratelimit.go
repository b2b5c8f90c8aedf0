package middleware

import (
	"fmt"
	"math"

	"github.com/gin-gonic/gin"

	"github.com/internlens/internlens-api/internal/models"
	"github.com/internlens/internlens-api/internal/service"
	appErrors "github.com/internlens/internlens-api/pkg/errors"
	"github.com/internlens/internlens-api/pkg/response"
)

// RateLimit throttles submissions on write-heavy endpoints. The identity
// is the authenticated user id when claims are present, otherwise the
// client IP, so anonymous submissions are still bounded.
func RateLimit(limiter *service.RateLimitService, metricsSvc *service.MetricsService, purpose string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		identity := c.ClientIP()
		if claimsValue, exists := c.Get(ContextUserKey); exists {
			if claims, ok := claimsValue.(*models.JWTClaims); ok {
				identity = claims.UserID
			}
		}

		result := limiter.Allow(c.Request.Context(), purpose, identity)
		if result.Allowed {
			c.Next()
			return
		}

		if metricsSvc != nil {
			metricsSvc.RecordRateLimited(purpose)
		}
		retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		response.Error(c, appErrors.Clone(appErrors.ErrRateLimited,
			fmt.Sprintf("too many requests, retry in %ds", retryAfter)))
		c.Abort()
	}
}
