package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pharmia/backend/internal/auth"
	"github.com/pharmia/backend/internal/models"
	"github.com/pharmia/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles. Roles are
// compared as closed enum values; no string normalization happens here.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(auth.ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(models.Role)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// IsAdmin reports whether the current request carries an admin session.
func IsAdmin(c *gin.Context) bool {
	roleVal, ok := c.Get(auth.ContextUserRole)
	if !ok {
		return false
	}
	role, _ := roleVal.(models.Role)
	return role == models.RoleAdmin
}

// CurrentUserID returns the authenticated user id, if any.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(auth.ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
