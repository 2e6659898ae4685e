package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/facebook"
	"github.com/avolkov/beacon/internal/logging"
	"github.com/avolkov/beacon/internal/middleware/auth"
	"github.com/avolkov/beacon/internal/repo"
	"github.com/avolkov/beacon/internal/timeutil"
)

// UserHandler implements the profile, friends and settings endpoints.
type UserHandler struct {
	Repo     *repo.Repo
	Facebook *facebook.Client
}

type profileResponse struct {
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Gender     string    `json:"gender"`
	Email      string    `json:"email"`
	DateJoined time.Time `json:"date_joined"`
}

func (h *UserHandler) Me(c echo.Context) error {
	user := auth.CurrentUser(c)
	return c.JSON(http.StatusOK, echo.Map{"data": profileResponse{
		Username:   user.Username,
		Name:       user.Name(),
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Gender:     user.Gender,
		Email:      user.Email,
		DateJoined: timeutil.InOffset(user.DateJoined, user.TimezoneOffset),
	}})
}

type friendResponse struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Friends proxies the social graph. The stored external token authenticates
// the call; the local username is the Graph user id.
func (h *UserHandler) Friends(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)

	fbToken, err := h.Repo.FacebookTokenForUser(ctx, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.Unauthorized("Missing social credentials")
	}
	if err != nil {
		return err
	}

	friends, err := h.Facebook.Friends(ctx, fbToken.AccessToken, user.Username)
	if err != nil {
		var ge *facebook.GraphError
		if errors.As(err, &ge) {
			return apierrors.New(ge.Message, apierrors.CodeServerError, http.StatusServiceUnavailable)
		}
		logging.FromContext(ctx).Error("facebook_unreachable", "error", err)
		return apierrors.Server(apierrors.DefaultError)
	}

	out := make([]friendResponse, 0, len(friends))
	for _, f := range friends {
		out = append(out, friendResponse{Username: f.ID, Name: f.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

func (h *UserHandler) GetSettings(c echo.Context) error {
	user := auth.CurrentUser(c)
	settings, err := h.Repo.SettingsForUser(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": settings.Map()})
}

// UpdateSettings merges the posted object into the stored settings. A JSON
// null body is the explicit reset to the empty state.
func (h *UserHandler) UpdateSettings(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)

	var params map[string]any
	if err := c.Bind(&params); err != nil {
		return apierrors.InvalidRequest("Malformed settings body")
	}

	settings, err := h.Repo.SettingsForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := settings.UpdateSettings(params); err != nil {
		return apierrors.InvalidRequest("Invalid settings value")
	}
	if err := h.Repo.SaveSettings(ctx, settings); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": settings.Map()})
}
