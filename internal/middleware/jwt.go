package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-lms/backend/pkg/response"
)

const (
	// ContextUserID is the key for the authenticated user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for the authenticated role in gin context.
	ContextUserRole = "user_role"
)

// Validator validates a bearer token and returns the authenticated principal.
type Validator func(token string) (userID, role string, err error)

// JWT returns a middleware that validates the Authorization header and sets
// the principal in context.
func JWT(validate Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		userID, role, err := validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, userID)
		c.Set(ContextUserRole, role)
		c.Next()
	}
}
