package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kitchenhelper/users-service/internal/core/ports"
)

// Context keys set by Auth.
const (
	ContextUserID = "user_id"
	ContextRoles  = "roles"
)

// Auth validates the bearer access token and injects its claims into context.
// Refresh tokens are rejected.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return unauthorized(c, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return unauthorized(c, "invalid authorization header")
			}

			claims, err := verifier.ParseAccessToken(parts[1])
			if err != nil {
				return unauthorized(c, "Could not validate credentials")
			}

			c.Set(ContextUserID, claims.Subject)
			c.Set(ContextRoles, claims.Roles)

			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}
