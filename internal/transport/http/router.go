package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/session_guard/internal/handlers"
	mw "github.com/Skotchmaster/session_guard/pkg/middleware/auth"
)

type Deps struct {
	DB             *gorm.DB
	SessionHandler *handlers.SessionHandler
	DeviceHandler  *handlers.DeviceHandler
	AlertHandler   *handlers.AlertHandler
	Auth           *mw.AutoRefreshMiddleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB != nil {
			sqlDB, err := d.DB.DB()
			if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	v1 := e.Group("/api/v1")

	// reachable only through the trusted gateway with a verified identity
	v1.POST("/session/login", d.SessionHandler.Login)

	session := v1.Group("/session", d.Auth.RequireAuth)
	session.POST("/logout", d.SessionHandler.Logout)
	session.POST("/revoke_all", d.SessionHandler.RevokeAll)
	session.GET("/history", d.SessionHandler.History)

	devices := v1.Group("/devices", d.Auth.RequireAuth)
	devices.GET("", d.DeviceHandler.List)
	devices.POST("/trust", d.DeviceHandler.TrustCurrent)
	devices.POST("/trust/:fingerprint", d.DeviceHandler.TrustFingerprint)
	devices.DELETE("/trusted/:fingerprint", d.DeviceHandler.RemoveTrusted)
	devices.DELETE("/:fingerprint/sessions", d.DeviceHandler.Revoke)

	alerts := v1.Group("/alerts", d.Auth.RequireAuth)
	alerts.GET("", d.AlertHandler.List)
	alerts.POST("/:id/read", d.AlertHandler.MarkRead)
	alerts.POST("/:id/dismiss", d.AlertHandler.Dismiss)
}
