package apierrors

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/beacon/internal/logging"
)

// HTTPErrorHandler renders every failure as the {message, code} envelope.
// Internal details never reach the client; unknown errors become server_error.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	apiErr, ok := AsAPIError(err)
	if !ok {
		if he, isHTTP := err.(*echo.HTTPError); isHTTP {
			msg, _ := he.Message.(string)
			if msg == "" {
				msg = http.StatusText(he.Code)
			}
			apiErr = New(msg, codeForStatus(he.Code), he.Code)
		} else {
			logging.FromContext(c.Request().Context()).Error(
				"unhandled_error", "error", err, "path", c.Path())
			apiErr = Server(DefaultError)
		}
	}

	if err := c.JSON(apiErr.Status, apiErr); err != nil {
		c.Logger().Error(err)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeInsufficientScope
	case http.StatusNotFound:
		return CodeNotFound
	default:
		return CodeServerError
	}
}
