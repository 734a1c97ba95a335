package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/session_guard/internal/autherr"
	"github.com/Skotchmaster/session_guard/internal/logging"
	"github.com/Skotchmaster/session_guard/internal/repo"
	"github.com/Skotchmaster/session_guard/internal/service"
	"github.com/Skotchmaster/session_guard/internal/tokens"
	"github.com/Skotchmaster/session_guard/internal/util"
	mw "github.com/Skotchmaster/session_guard/pkg/middleware/auth"
)

type SessionHandler struct {
	Repo    *repo.GormRepo
	Issuer  *service.IssuerService
	Revoker *service.RevocationService
	Events  *service.EventService
}

// Login turns an already verified identity into a credential pair. The
// identity proof (OAuth exchange, one-time code) happens upstream; this
// endpoint is only reachable through the trusted gateway.
func (h *SessionHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session_login")

	var req struct {
		PrincipalID string `json:"principal_id"`
		Email       string `json:"email"`
		Name        string `json:"name"`
		Descriptor  string `json:"descriptor"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	principalID, err := uuid.Parse(req.PrincipalID)
	if err != nil || req.Email == "" {
		l.Warn("login_failed", "status", 400, "reason", "bad identity")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid identity")
	}

	descriptor := req.Descriptor
	if descriptor == "" {
		descriptor = c.Request().UserAgent()
	}
	origin := c.RealIP()

	pair, err := h.Issuer.IssuePair(ctx, service.IssueInput{
		PrincipalID: principalID,
		Email:       req.Email,
		Name:        req.Name,
		Descriptor:  descriptor,
		Origin:      origin,
	})
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.Events.ObserveAsync(service.ObserveInput{
		PrincipalID: principalID,
		Origin:      origin,
		Descriptor:  descriptor,
		Kind:        service.EventLogin,
	})

	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, pair.AccessToken, "/", pair.AccessExp))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"access_exp":    pair.AccessExp.Unix(),
		"refresh_exp":   pair.RefreshExp.Unix(),
	})
}

// Logout kills the whole chain the device belongs to and deny-lists the
// still-valid access token.
func (h *SessionHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session_logout")

	if refreshCookie, err := c.Cookie(tokens.RefreshCookie); err == nil && refreshCookie.Value != "" {
		if err := h.Revoker.RevokeChain(ctx, refreshCookie.Value); err != nil && !autherr.IsAuthError(err) {
			l.Error("logout_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}
	if accessCookie, err := c.Cookie(tokens.AccessCookie); err == nil && accessCookie.Value != "" {
		h.Revoker.BlacklistAccess(accessCookie.Value)
	}

	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
	return c.NoContent(http.StatusNoContent)
}

// RevokeAll is the global kill switch for the calling principal.
func (h *SessionHandler) RevokeAll(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session_revoke_all")

	principalID, ok := mw.PrincipalFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	if _, err := h.Revoker.RevokeAllForPrincipal(ctx, principalID); err != nil {
		l.Error("revoke_all_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if accessCookie, err := c.Cookie(tokens.AccessCookie); err == nil && accessCookie.Value != "" {
		h.Revoker.BlacklistAccess(accessCookie.Value)
	}
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/"))
	return c.NoContent(http.StatusNoContent)
}

// History lists the caller's recent login events, newest first.
func (h *SessionHandler) History(c echo.Context) error {
	principalID, ok := mw.PrincipalFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	events, err := h.Repo.ListLoginEvents(principalID, offset, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, events)
}
