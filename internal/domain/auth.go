package domain

import "github.com/golang-jwt/jwt/v5"

// Roles understood by the API layer
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// AccessClaims is the JWT payload issued by the (external) auth layer.
type AccessClaims struct {
	UserID string   `json:"uid"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}
