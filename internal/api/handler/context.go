package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patricktravel/portal/internal/api/middleware"
	"github.com/patricktravel/portal/internal/i18n"
)

// ctxUserID returns the subject the route guard stored for this request, or
// 401 when the route is not covered by a protected prefix.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.ContextUserID).(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return id, nil
}

// localize renders key in the language negotiated from Accept-Language.
func localize(c echo.Context, key string) string {
	return i18n.Translate(i18n.Resolve(c.Request().Header.Get("Accept-Language")), key)
}
