package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leixiaohui-1974/HydroResources/pkg/ctxkeys"
)

// JWTAuthMiddleware validates Bearer JWT tokens and injects the caller's
// tenant and user identity into both the gin context and the request context.
func JWTAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(auth, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			c.Abort()
			return
		}

		claims, err := ValidateJWT(parts[1], secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set("tenant_id", claims.TenantID)
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		ctx := ctxkeys.WithTenantID(c.Request.Context(), claims.TenantID)
		ctx = ctxkeys.WithUserID(ctx, claims.UserID)
		ctx = ctxkeys.WithRole(ctx, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
