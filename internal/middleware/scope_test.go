package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmia/backend/internal/auth"
	"github.com/pharmia/backend/internal/models"
)

func newScopeRouter(svc *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/submit", JWT(svc), func(c *gin.Context) {
		c.String(http.StatusOK, "submitted")
	})
	r.POST("/register", JWT(svc), RequireScope(auth.ScopeSession), func(c *gin.Context) {
		c.String(http.StatusOK, "registered")
	})
	r.GET("/admin", JWT(svc), RequireScope(auth.ScopeSession), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "attendee list")
	})
	return r
}

func doRequest(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGuestTokenReachesOnlyGuestRoutes(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 24, time.Hour)
	r := newScopeRouter(svc)

	guest, err := svc.GenerateGuest(uuid.New(), "guest@example.com")
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, doRequest(r, "POST", "/submit", guest).Code)
	require.Equal(t, http.StatusForbidden, doRequest(r, "POST", "/register", guest).Code)
}

func TestGuestTokenCannotReachAdminRoutes(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 24, time.Hour)
	r := newScopeRouter(svc)

	// Public registration with an admin's email must not mint a token that
	// clears the admin chain.
	guest, err := svc.GenerateGuest(uuid.New(), "admin@example.com")
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, doRequest(r, "GET", "/admin", guest).Code)

	session, err := svc.Generate(uuid.New(), "admin@example.com", models.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, doRequest(r, "GET", "/admin", session).Code)
}

func TestSessionTokenPassesScopeCheck(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 24, time.Hour)
	r := newScopeRouter(svc)

	session, err := svc.Generate(uuid.New(), "user@example.com", models.RolePharmacist)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, doRequest(r, "POST", "/register", session).Code)
	require.Equal(t, http.StatusForbidden, doRequest(r, "GET", "/admin", session).Code)
}
