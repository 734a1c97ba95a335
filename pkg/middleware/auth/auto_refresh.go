package middleware

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/session_guard/internal/autherr"
	"github.com/Skotchmaster/session_guard/internal/denylist"
	"github.com/Skotchmaster/session_guard/internal/service"
	"github.com/Skotchmaster/session_guard/internal/tokens"
)

// Response headers carrying rotated credentials; the caller must drop the old
// refresh token the moment these appear.
const (
	HeaderNewAccess  = "X-New-Access-Token"
	HeaderNewRefresh = "X-New-Refresh-Token"
)

// AutoRefreshMiddleware is the per-request authenticator: a valid access
// token passes through, an expired one triggers a silent rotation, anything
// else is rejected with the taxonomy's unauthorized-class response.
type AutoRefreshMiddleware struct {
	JWTSecret []byte
	Rotator   *service.RotationService
	Events    *service.EventService
	Deny      denylist.Denylist
}

func NewAutoRefreshMiddleware(secret []byte, rotator *service.RotationService, events *service.EventService, deny denylist.Denylist) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{
		JWTSecret: secret,
		Rotator:   rotator,
		Events:    events,
		Deny:      deny,
	}
}

func (m *AutoRefreshMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.authenticate(next, true)
}

// OptionalAuth leaves identity unattached instead of failing, for endpoints
// that tolerate anonymity.
func (m *AutoRefreshMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.authenticate(next, false)
}

func (m *AutoRefreshMiddleware) authenticate(next echo.HandlerFunc, required bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessCookie, err := c.Cookie(tokens.AccessCookie)
		hasAccess := err == nil && accessCookie.Value != ""

		if hasAccess {
			if m.Deny != nil && m.Deny.Contains(accessCookie.Value) {
				return m.reject(c, next, required, autherr.ErrSessionInvalidated)
			}
			claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
			if err == nil && claims != nil {
				setPrincipalContext(c, claims)
				return next(c)
			}
			if !errors.Is(err, jwt.ErrTokenExpired) {
				clearAuthCookies(c)
				return m.reject(c, next, required, autherr.ErrInvalidCredential)
			}
		}

		refreshCookie, rErr := c.Cookie(tokens.RefreshCookie)
		if rErr != nil || refreshCookie.Value == "" {
			clearAuthCookies(c)
			return m.reject(c, next, required, autherr.ErrAuthRequired)
		}

		ctx := c.Request().Context()
		descriptor := c.Request().UserAgent()
		pair, rotErr := m.Rotator.Rotate(ctx, service.RotateInput{
			RawToken:   refreshCookie.Value,
			Descriptor: descriptor,
			Origin:     c.RealIP(),
		})
		if rotErr != nil {
			clearAuthCookies(c)
			return m.reject(c, next, required, rotErr)
		}

		c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp))
		c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp))
		c.Response().Header().Set(HeaderNewAccess, pair.AccessToken)
		c.Response().Header().Set(HeaderNewRefresh, pair.RefreshToken)

		newClaims, pErr := tokens.AccessClaimsFromToken(pair.AccessToken, m.JWTSecret)
		if pErr != nil || newClaims == nil {
			clearAuthCookies(c)
			return m.reject(c, next, required, autherr.ErrInvalidCredential)
		}
		setPrincipalContext(c, newClaims)

		if m.Events != nil {
			if pid, err := principalID(newClaims); err == nil {
				m.Events.ObserveAsync(service.ObserveInput{
					PrincipalID: pid,
					Origin:      c.RealIP(),
					Descriptor:  descriptor,
					Kind:        service.EventTokenRefresh,
				})
			}
		}

		return next(c)
	}
}

func (m *AutoRefreshMiddleware) reject(c echo.Context, next echo.HandlerFunc, required bool, err error) error {
	if !required {
		return next(c)
	}
	return echo.NewHTTPError(autherr.HTTPStatus(err), autherr.Message(err))
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
}
