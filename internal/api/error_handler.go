package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Detail string `json:"detail"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"detail": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Detail: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrUserDoesNotExist):
		return http.StatusBadRequest, "User does not exist"
	case errors.Is(err, domain.ErrWrongCredentials):
		return http.StatusForbidden, "Incorrect username or password"
	case errors.Is(err, domain.ErrRefreshTokenMissing):
		return http.StatusUnauthorized, "Refresh token missing"
	case errors.Is(err, domain.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "Refresh token expired"
	case errors.Is(err, domain.ErrRefreshTokenInvalid):
		return http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, domain.ErrAccessTokenInvalid):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, domain.ErrRoleAlreadyExists):
		return http.StatusConflict, "Role already exists"
	case errors.Is(err, domain.ErrRoleAlreadyAssigned):
		return http.StatusConflict, "Role already assigned to user"
	case errors.Is(err, domain.ErrRoleDoesNotExist):
		return http.StatusNotFound, "Role does not exist"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many failed sign-in attempts"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrEmptyUserQuery),
		errors.Is(err, domain.ErrFieldNotUpdatable),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity, err.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
