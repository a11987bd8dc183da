package crew

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the read side of an issued session token
type SessionClaims interface {
	Subject() string
	UserID() string
	Role() UserRole
	CompanyID() string
	Status() UserStatus
	HasRole(role UserRole) bool
	IsAtLeast(minRole UserRole) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of SessionClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID        string `json:"uid,omitempty"`
	UserRole   string `json:"role,omitempty"`
	Company    string `json:"cid,omitempty"`
	UserStatus string `json:"st,omitempty"`
}

var _ SessionClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the role at issue time. Authorization always re-reads the
// stored user, the claim is only used for routing.
func (c *JWTClaims) Role() UserRole {
	return UserRole(c.UserRole)
}

func (c *JWTClaims) CompanyID() string {
	return c.Company
}

func (c *JWTClaims) Status() UserStatus {
	return UserStatus(c.UserStatus)
}

func (c *JWTClaims) HasRole(role UserRole) bool {
	return UserRole(c.UserRole) == role
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (c *JWTClaims) IsAtLeast(minRole UserRole) bool {
	return UserRole(c.UserRole).IsAtLeast(minRole)
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
