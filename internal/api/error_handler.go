package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/patricktravel/portal/internal/core/domain"
	"github.com/patricktravel/portal/internal/i18n"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to a status code and a stable error code.
//   - Localizes the message from the request's Accept-Language.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	lang := i18n.Resolve(c.Request().Header.Get("Accept-Language"))
	envelope := func(code string) errorResponse {
		return errorResponse{Error: i18n.Translate(lang, code), Code: code}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusBadRequest {
			return he.Code, envelope(i18n.KeyBadRequest)
		}
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: statusCode(he.Code)}
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body := envelope(i18n.KeyValidationFailed)
		body.Fields = verr.Fields
		return http.StatusUnprocessableEntity, body
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrDuplicateAccount):
		return http.StatusConflict, envelope(i18n.KeyDuplicateAccount)
	case errors.Is(err, domain.ErrUnconfirmedEmail):
		return http.StatusForbidden, envelope(i18n.KeyUnconfirmedEmail)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, envelope(i18n.KeyInvalidCredentials)
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, envelope(i18n.KeyUserNotFound)
	case errors.Is(err, domain.ErrInvalidLink):
		return http.StatusBadRequest, envelope(i18n.KeyInvalidLink)
	case errors.Is(err, domain.ErrRecoveryUnavailable):
		return http.StatusNotImplemented, envelope(i18n.KeyRecoveryUnavailable)
	case errors.Is(err, domain.ErrApplicationNotFound):
		return http.StatusNotFound, envelope(i18n.KeyApplicationNotFound)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	return http.StatusInternalServerError, envelope(i18n.KeyInternalError)
}

// statusCode turns "Not Found" into "not_found".
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return i18n.KeyInternalError
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
