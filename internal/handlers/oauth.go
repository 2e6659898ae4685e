package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/facebook"
	"github.com/avolkov/beacon/internal/logging"
	"github.com/avolkov/beacon/internal/models"
	"github.com/avolkov/beacon/internal/repo"
	"github.com/avolkov/beacon/internal/service"
	"github.com/avolkov/beacon/internal/timeutil"
)

// OAuthHandler implements POST /oauth/token: the Facebook-exchange password
// grant and the refresh grant.
type OAuthHandler struct {
	Repo     *repo.Repo
	Tokens   *service.TokenService
	Facebook *facebook.Client
}

func (h *OAuthHandler) Token(c echo.Context) error {
	switch c.FormValue("grant_type") {
	case "password":
		return h.passwordGrant(c)
	case "refresh_token":
		return h.refreshGrant(c)
	}
	return apierrors.New("Unsupported grant type",
		apierrors.CodeUnsupportedGrantType, http.StatusBadRequest)
}

// passwordGrant exchanges a short-lived Facebook token for a service bundle.
// The form carries the Facebook user id as username and the Facebook access
// token as password; the local username is the Graph user id.
func (h *OAuthHandler) passwordGrant(c echo.Context) error {
	ctx := c.Request().Context()
	fbUserID := c.FormValue("username")
	fbToken := c.FormValue("password")
	if fbUserID == "" || fbToken == "" {
		return apierrors.InvalidRequest("Missing username or password parameters")
	}

	longToken, expiresIn, err := h.Facebook.ExchangeToken(ctx, fbToken)
	if err != nil {
		return graphGrantError(c, err)
	}
	profile, err := h.Facebook.Me(ctx, longToken)
	if err != nil {
		return graphGrantError(c, err)
	}
	if profile.ID != fbUserID {
		return apierrors.InvalidGrant("Invalid credentials")
	}

	user, err := h.Repo.UserByUsername(ctx, profile.ID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &models.User{
			Username:       profile.ID,
			FirstName:      profile.FirstName,
			LastName:       profile.LastName,
			Gender:         profile.Gender,
			Email:          profile.Email,
			TimezoneOffset: timeutil.HoursToMinutes(profile.Timezone),
		}
		if err := h.Repo.CreateUser(ctx, user); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if err := h.Repo.TouchLastLogin(ctx, user.ID); err != nil {
			return err
		}
	}

	fbRow, err := h.Repo.FacebookTokenForUser(ctx, user.ID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if _, err := h.Tokens.IssueFacebook(ctx, user.ID, longToken, expiresIn); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if err := h.Tokens.RenewFacebook(ctx, fbRow, longToken, expiresIn); err != nil {
			return err
		}
	}

	_, bundle, err := h.Tokens.IssueBeacon(ctx, user)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("token_issued", "username", user.Username)
	return c.JSON(http.StatusOK, bundle)
}

func (h *OAuthHandler) refreshGrant(c echo.Context) error {
	refresh := c.FormValue("refresh_token")
	if refresh == "" {
		return apierrors.InvalidRequest("Missing refresh_token parameter")
	}
	_, bundle, err := h.Tokens.Refresh(c.Request().Context(), refresh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bundle)
}

func graphGrantError(c echo.Context, err error) error {
	var ge *facebook.GraphError
	if errors.As(err, &ge) {
		return apierrors.InvalidGrant("Invalid credentials")
	}
	logging.FromContext(c.Request().Context()).Error("facebook_unreachable", "error", err)
	return apierrors.Server(apierrors.DefaultError)
}
