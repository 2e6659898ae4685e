package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/avolkov/beacon/internal/handlers"
	"github.com/avolkov/beacon/internal/middleware/auth"
	"github.com/avolkov/beacon/internal/models"
)

type Deps struct {
	Guard           *auth.Guard
	OAuthHandler    *handlers.OAuthHandler
	LocationHandler *handlers.LocationHandler
	ActivityHandler *handlers.ActivityHandler
	UserHandler     *handlers.UserHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	e.POST("/oauth/token", d.OAuthHandler.Token)

	e.GET("/friends", d.UserHandler.Friends, d.Guard.Require(models.ScopeProfile))
	e.GET("/me", d.UserHandler.Me, d.Guard.Require(models.ScopeProfile))
	e.GET("/settings", d.UserHandler.GetSettings, d.Guard.Require(models.ScopeProfile))
	e.POST("/settings", d.UserHandler.UpdateSettings, d.Guard.Require(models.ScopeProfile))

	e.POST("/location/request", d.LocationHandler.Request, d.Guard.Require(models.ScopeLocation))
	e.POST("/location/notify", d.LocationHandler.Notify, d.Guard.Require(models.ScopeLocation))

	e.GET("/history", d.ActivityHandler.List, d.Guard.Require(models.ScopeHistory))
}
