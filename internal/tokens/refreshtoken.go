package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type RefreshSpec struct {
	PrincipalID uuid.UUID
	Epoch       int
	FamilyID    string
	JTI         string
	ExpiresAt   time.Time
}

func SignRefreshToken(spec RefreshSpec, secret []byte) (string, error) {
	claims := RefreshClaims{
		Typ:      TypeRefresh,
		Epoch:    spec.Epoch,
		FamilyID: spec.FamilyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   spec.PrincipalID.String(),
			ID:        spec.JTI,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(spec.ExpiresAt),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// RefreshClaimsFromToken accepts expired tokens: the stored record decides
// expiry so rotation can distinguish "expired" from "forged".
func RefreshClaimsFromToken(tokenStr string, refreshSecret []byte) (*RefreshClaims, error) {
	var claims RefreshClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return refreshSecret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if claims.Typ != TypeRefresh {
		return nil, errors.New("not a refresh token")
	}
	return &claims, nil
}

func NewJTI() string {
	return uuid.NewString()
}

func NewFamilyID() string {
	return uuid.NewString()
}

// Sha256Hex is how refresh tokens are stored; the raw JWT never touches disk
// except as a predecessor's successor reference for the grace path.
func Sha256Hex(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
