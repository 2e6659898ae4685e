package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/models"
	"github.com/avolkov/beacon/internal/service"
)

const (
	userContextKey  = "auth.user"
	tokenContextKey = "auth.token"
)

// Guard protects routes behind a bearer token with a required scope.
type Guard struct {
	Tokens *service.TokenService
}

// Require validates the Authorization header against the scope and binds the
// resolved user and token into the request context.
func (g *Guard) Require(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return apierrors.Unauthorized("Missing bearer token")
			}
			user, token, err := g.Tokens.Authorize(c.Request().Context(), raw, scope)
			if err != nil {
				return err
			}
			c.Set(userContextKey, user)
			c.Set(tokenContextKey, token)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// CurrentUser returns the user the guard bound to the context.
func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

// CurrentToken returns the token the guard bound to the context.
func CurrentToken(c echo.Context) *models.Token {
	if t, ok := c.Get(tokenContextKey).(*models.Token); ok {
		return t
	}
	return nil
}

// SetCurrentUser is a test hook for exercising handlers without the guard.
func SetCurrentUser(c echo.Context, u *models.User) {
	c.Set(userContextKey, u)
}
