package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-lms/backend/pkg/response"
)

// RequireRole ensures the authenticated user holds one of the given roles.
// It must run after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}
