package quota

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leixiaohui-1974/HydroResources/pkg/ctxkeys"
)

// Middleware rejects callers that exhausted their window budget before
// the orchestrator is ever invoked. The JWT role claim selects the
// caller's plan budget; unidentified callers are limited by client IP.
func Middleware(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := ctxkeys.GetUserID(c.Request.Context())
		if callerID == "" {
			callerID = c.ClientIP()
		}
		plan := ctxkeys.GetRole(c.Request.Context())

		allowed, remaining, resetSeconds := limiter.AllowPlan(callerID, plan)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSeconds))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "request quota exceeded",
				"retry_after": resetSeconds,
			})
			return
		}
		c.Next()
	}
}
