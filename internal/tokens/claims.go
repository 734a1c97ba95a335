package tokens

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

type AccessClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Typ   string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Typ      string `json:"typ"`
	Epoch    int    `json:"epoch"`
	FamilyID string `json:"family_id"`
	jwt.RegisteredClaims
}
