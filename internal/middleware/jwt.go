package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/atelier-events/bookingbot/pkg/response"
)

const (
	// ContextRole is the key for the authenticated role in gin context.
	ContextRole = "role"
)

// ValidateFunc checks a bearer token and returns the authenticated role.
type ValidateFunc func(token string) (role string, err error)

// JWT returns a middleware that validates the bearer token and sets the
// role in context.
func JWT(validate ValidateFunc) gin.HandlerFunc {
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
		role, err := validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextRole, role)
		c.Next()
	}
}
