// Package auth provides bearer token and password handling for the admin API.
package auth

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin is the only role issued today.
const RoleAdmin = "admin"

// Claims are the JWT claims of an admin API token.
type Claims struct {
	jwt.RegisteredClaims

	// Username is the authenticated account.
	Username string `json:"username"`

	// Role is the account role.
	Role string `json:"role"`
}

// IsAdmin returns true if the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
