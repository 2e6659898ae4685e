package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/middleware/auth"
	"github.com/avolkov/beacon/internal/service"
)

// LocationHandler implements the request and notify endpoints.
type LocationHandler struct {
	Locations *service.LocationService
}

type requestLocationBody struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
}

type notifyLocationBody struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Key      string `json:"key" form:"key"`
	LatLng   string `json:"latlng" form:"latlng"`
}

func (h *LocationHandler) Request(c echo.Context) error {
	var body requestLocationBody
	if err := c.Bind(&body); err != nil {
		return apierrors.InvalidRequest("Malformed request body")
	}
	user := auth.CurrentUser(c)

	req, err := h.Locations.RequestLocation(
		c.Request().Context(), user, body.Username, body.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": req})
}

func (h *LocationHandler) Notify(c echo.Context) error {
	var body notifyLocationBody
	if err := c.Bind(&body); err != nil {
		return apierrors.InvalidRequest("Malformed request body")
	}
	user := auth.CurrentUser(c)

	notif, err := h.Locations.NotifyLocation(
		c.Request().Context(), user, body.Key, body.Email, body.Username, body.LatLng)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": notif})
}
