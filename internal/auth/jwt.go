package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pharmia/backend/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Token scopes. A guest token is issued on paid public registration and only
// proves control of the email until payment is confirmed; it is not a session.
const (
	ScopeSession = "session"
	ScopeGuest   = "guest"
)

// Claims holds JWT claims including user ID, role and scope.
type Claims struct {
	UserID uuid.UUID   `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	Scope  string      `json:"scope"`
	jwt.RegisteredClaims
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret      []byte
	expireHours int
	guestTTL    time.Duration
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int, guestTTL time.Duration) *JWTService {
	return &JWTService{
		secret:      []byte(secret),
		expireHours: expireHours,
		guestTTL:    guestTTL,
	}
}

// Generate creates a full session JWT for the user.
func (s *JWTService) Generate(userID uuid.UUID, email string, role models.Role) (string, error) {
	return s.sign(userID, email, role, ScopeSession, time.Duration(s.expireHours)*time.Hour)
}

// GenerateGuest creates a short-lived guest JWT for a pending paid
// registration. The claims never carry the account's stored role: anyone can
// type anyone's email into public registration, so the token only ever
// represents an unprivileged pharmacist.
func (s *JWTService) GenerateGuest(userID uuid.UUID, email string) (string, error) {
	return s.sign(userID, email, models.RolePharmacist, ScopeGuest, s.guestTTL)
}

func (s *JWTService) sign(userID uuid.UUID, email string, role models.Role, scope string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
