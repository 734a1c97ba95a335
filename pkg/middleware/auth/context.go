package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/session_guard/internal/tokens"
)

const (
	CtxPrincipalID = "principal_id"
	CtxEmail       = "principal_email"
	CtxName        = "principal_name"
)

func setPrincipalContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set(CtxPrincipalID, claims.Subject)
	c.Set(CtxEmail, claims.Email)
	c.Set(CtxName, claims.Name)
}

// PrincipalFromContext returns the authenticated principal id, or uuid.Nil
// when the request ran through OptionalAuth without credentials.
func PrincipalFromContext(c echo.Context) (uuid.UUID, bool) {
	raw, ok := c.Get(CtxPrincipalID).(string)
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func principalID(claims *tokens.AccessClaims) (uuid.UUID, error) {
	return uuid.Parse(claims.Subject)
}
