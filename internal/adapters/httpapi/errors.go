package httpapi

import (
	"errors"
	"net/http"

	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/labstack/echo/v4"
)

// mapInstallError converts an install failure into the response shown to
// the person running the install.
func mapInstallError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid state parameter")

	case errors.Is(err, domain.ErrMissingCode):
		return echo.NewHTTPError(http.StatusBadRequest, "Missing authorization code")

	case errors.Is(err, domain.ErrExchangeFailed):
		return echo.NewHTTPError(http.StatusBadRequest, "Installation was not authorized")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Installation failed")
	}
}

// plainTextErrors writes HTTP errors as a text body instead of echo's JSON
// envelope.
func plainTextErrors(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		message = http.StatusText(code)
		if text, ok := httpErr.Message.(string); ok {
			message = text
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.String(code, message)
}
