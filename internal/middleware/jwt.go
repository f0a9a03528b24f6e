package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pharmia/backend/internal/auth"
	"github.com/pharmia/backend/pkg/response"
)

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(auth.ContextUserID, claims.UserID)
	c.Set(auth.ContextUserRole, claims.Role)
	c.Set(auth.ContextUserEmail, claims.Email)
	c.Set(auth.ContextTokenScope, claims.Scope)
}

// JWT returns a middleware that validates JWT and sets user claims in context.
// Guest-scope tokens pass here; routes that need a full session chain
// RequireScope behind it.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing or invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWT sets user claims when a valid bearer token is present and passes
// the request through anonymously otherwise. Webinar reads use it so the same
// endpoint serves both admins and unauthenticated visitors.
func OptionalJWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := jwtService.Validate(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}
