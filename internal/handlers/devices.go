package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/session_guard/internal/logging"
	"github.com/Skotchmaster/session_guard/internal/service"
	mw "github.com/Skotchmaster/session_guard/pkg/middleware/auth"
)

type DeviceHandler struct {
	Trust   *service.TrustService
	Revoker *service.RevocationService
}

func (h *DeviceHandler) List(c echo.Context) error {
	principalID, ok := mw.PrincipalFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	entries, err := h.Trust.List(c.Request().Context(), principalID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, entries)
}

// TrustCurrent marks the requesting device as trusted, keyed by the
// fingerprint of its own descriptor.
func (h *DeviceHandler) TrustCurrent(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "device_trust_current")

	principalID, ok := mw.PrincipalFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	fp, err := h.Trust.TrustDevice(ctx, principalID, c.Request().UserAgent(), c.RealIP())
	if err != nil {
		l.Error("trust_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, map[string]string{"fingerprint": fp})
}

func (h *DeviceHandler) TrustFingerprint(c echo.Context) error {
	ctx := c.Request().Context()
	principalID, ok := mw.PrincipalFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	fp := c.Param("fingerprint")
	if fp == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fingerprint required")
	}
	if err := h.Trust.TrustFingerprint(ctx, principalID, fp, "", c.RealIP()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DeviceHandler) RemoveTrusted(c echo.Context) error {
	principalID, ok := mw.PrincipalFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	fp := c.Param("fingerprint")
	if fp == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fingerprint required")
	}
	if err := h.Trust.Remove(c.Request().Context(), principalID, fp); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.NoContent(http.StatusNoContent)
}

// Revoke terminates every session the device ever started; the trust entry
// survives until removed explicitly.
func (h *DeviceHandler) Revoke(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "device_revoke")

	principalID, ok := mw.PrincipalFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	fp := c.Param("fingerprint")
	if fp == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fingerprint required")
	}
	if err := h.Revoker.RevokeDevice(ctx, principalID, fp); err != nil {
		l.Error("device_revoke_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.NoContent(http.StatusNoContent)
}
