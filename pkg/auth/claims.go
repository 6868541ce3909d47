package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Role identifies the authenticated actor's access level.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleB2B      Role = "b2b"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleB2B, RoleAdmin:
		return true
	}
	return false
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	CustomerID int64
	Email      string
	Role       Role
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients. The
// customer id is the WooCommerce customer the session belongs to.
type AccessTokenClaims struct {
	CustomerID int64  `json:"customer_id"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	jwt.RegisteredClaims
}
