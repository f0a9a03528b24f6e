package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
)

// ParseRole maps a string to a Role, rejecting unknown values.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RolePharmacist:
		return Role(s), true
	}
	return "", false
}

// CreditPool identifies one of the two per-user credit counters.
type CreditPool string

const (
	PoolMasterClass CreditPool = "master_class"
	PoolPharmia     CreditPool = "pharmia"
)

// Column returns the users-table column backing the pool.
func (p CreditPool) Column() string {
	switch p {
	case PoolMasterClass:
		return "master_class_credits"
	default:
		return "pharmia_credits"
	}
}

// PoolForGroup maps a webinar group to its credit pool. Only MASTER_CLASS and
// PHARMIA webinars can be paid with credits.
func PoolForGroup(g WebinarGroup) (CreditPool, bool) {
	switch g {
	case GroupMasterClass:
		return PoolMasterClass, true
	case GroupPharmia:
		return PoolPharmia, true
	}
	return "", false
}

// User represents a platform user.
type User struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	Password           string    `json:"-"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	PhoneNumber        string    `json:"phone_number"`
	Role               Role      `json:"role"`
	MasterClassCredits int       `json:"master_class_credits"`
	PharmiaCredits     int       `json:"pharmia_credits"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	PhoneNumber        string    `json:"phone_number,omitempty"`
	Role               Role      `json:"role"`
	MasterClassCredits int       `json:"master_class_credits"`
	PharmiaCredits     int       `json:"pharmia_credits"`
	CreatedAt          time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:                 u.ID,
		Email:              u.Email,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		PhoneNumber:        u.PhoneNumber,
		Role:               u.Role,
		MasterClassCredits: u.MasterClassCredits,
		PharmiaCredits:     u.PharmiaCredits,
		CreatedAt:          u.CreatedAt,
	}
}
