package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cliptag/backend/pkg/response"
)

// RequireRole lets through tokens whose role is one of roles. It reads the role that
// JWT stores under ContextRole, so it must run after JWT. Denied attempts are logged.
func RequireRole(logger *zap.Logger, roles ...string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			response.Unauthorized(c, "missing authorization")
			c.Abort()
			return
		}
		if !allowed[role] {
			logger.Warn("admin route denied",
				zap.String("path", c.Request.URL.Path),
				zap.String("role", role),
				zap.String("client_ip", c.ClientIP()))
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
