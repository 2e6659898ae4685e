package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/beacon/internal/apierrors"
	"github.com/avolkov/beacon/internal/middleware/auth"
	"github.com/avolkov/beacon/internal/service"
)

const defaultActivityLimit = 10

// ActivityHandler implements GET /history.
type ActivityHandler struct {
	Activity *service.ActivityService
}

type paging struct {
	NextOffset int `json:"next_offset"`
	Limit      int `json:"limit"`
}

func (h *ActivityHandler) List(c echo.Context) error {
	category := c.QueryParam("type")
	switch category {
	case service.ActivityOutgoing, service.ActivityIncoming,
		service.ActivityRequest, service.ActivityNotification:
	default:
		return apierrors.InvalidRequest("Missing or invalid type parameter")
	}

	offset, err := intParam(c, "offset", 0)
	if err != nil || offset < 0 {
		return apierrors.InvalidRequest("Invalid offset parameter")
	}
	limit, err := intParam(c, "limit", defaultActivityLimit)
	if err != nil || limit < 1 {
		return apierrors.InvalidRequest("Invalid limit parameter")
	}
	if limit > service.MaxActivityLimit {
		limit = service.MaxActivityLimit
	}

	user := auth.CurrentUser(c)
	items, err := h.Activity.List(
		c.Request().Context(), user.Username, category, offset, limit)
	if err != nil {
		return err
	}

	// next_offset is always offset+limit, even past the end: callers detect
	// exhaustion by receiving a short page.
	return c.JSON(http.StatusOK, echo.Map{
		"data":   items,
		"paging": paging{NextOffset: offset + limit, Limit: limit},
	})
}

func intParam(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
