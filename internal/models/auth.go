package models

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims is the payload of tokens issued by the identity provider.
// Subject carries the user id.
type IdentityClaims struct {
	Email     string   `json:"email"`
	FirstName string   `json:"given_name,omitempty"`
	LastName  string   `json:"family_name,omitempty"`
	Picture   string   `json:"picture,omitempty"`
	UserType  UserType `json:"user_type,omitempty"`
	jwt.RegisteredClaims
}
