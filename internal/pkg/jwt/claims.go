// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// Claims identifies a business operator. Admins may act on any business.
type Claims struct {
	BusinessID string   `json:"business_id,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// HasRole checks if the claims contain a specific role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c *Claims) IsAdmin() bool {
	return c.HasRole(RoleAdmin)
}

// CanActOn reports whether the holder may manage the given business queue.
func (c *Claims) CanActOn(businessID string) bool {
	if c.IsAdmin() {
		return true
	}
	return c.BusinessID != "" && c.BusinessID == businessID
}
