package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kitchenhelper/users-service/internal/api/middleware"
	"github.com/kitchenhelper/users-service/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware. A missing
// subject means the middleware did not run for this route; reject with 401.
func ctxClaims(c echo.Context) (userID string, roles []string, err error) {
	userID, _ = c.Get(middleware.ContextUserID).(string)
	if userID == "" {
		return "", nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	roles, _ = c.Get(middleware.ContextRoles).([]string)
	return userID, roles, nil
}

// requireSelfOrAdmin allows the caller to act on targetID when it is their own
// account or when they hold the ADMIN role. admin reports the latter.
func requireSelfOrAdmin(c echo.Context, targetID string) (actorID string, admin bool, err error) {
	actorID, roles, err := ctxClaims(c)
	if err != nil {
		return "", false, err
	}
	admin = hasRole(roles, domain.RoleAdmin)
	if actorID != targetID && !admin {
		return "", false, domain.ErrForbidden
	}
	return actorID, admin, nil
}

func hasRole(roles []string, name string) bool {
	for _, r := range roles {
		if r == name {
			return true
		}
	}
	return false
}
