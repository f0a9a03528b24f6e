package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/pharmia/backend/internal/auth"
	"github.com/pharmia/backend/pkg/response"
)

// RequireScope returns a middleware that allows only tokens carrying one of
// the given scopes. Guest tokens from paid public registration only reach the
// routes explicitly opened to them; everything else demands a full session.
func RequireScope(scopes ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, s := range scopes {
		allowed[s] = struct{}{}
	}
	return func(c *gin.Context) {
		scopeVal, ok := c.Get(auth.ContextTokenScope)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		scope, _ := scopeVal.(string)
		if _, ok := allowed[scope]; !ok {
			response.Forbidden(c, "a full session is required")
			c.Abort()
			return
		}
		c.Next()
	}
}
