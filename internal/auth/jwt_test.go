package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pharmia/backend/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 24, time.Hour)
	userID := uuid.New()

	token, err := svc.Generate(userID, "pharmacien@example.com", models.RolePharmacist)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, "pharmacien@example.com", claims.Email)
	require.Equal(t, models.RolePharmacist, claims.Role)
	require.Equal(t, ScopeSession, claims.Scope)
}

func TestGuestTokenScope(t *testing.T) {
	svc := NewJWTService("test-secret", 24, time.Hour)

	token, err := svc.GenerateGuest(uuid.New(), "guest@example.com")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, ScopeGuest, claims.Scope)
	// Public registration takes any email, so a guest token must never carry
	// a privileged role.
	require.Equal(t, models.RolePharmacist, claims.Role)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 24, time.Hour).Generate(uuid.New(), "a@b.c", models.RoleAdmin)
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 24, time.Hour).Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewJWTService("test-secret", 24, -time.Minute)

	token, err := svc.GenerateGuest(uuid.New(), "late@example.com")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 24, time.Hour)
	_, err := svc.Validate("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}
