package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RBAC lets the request through when the token holds at least one of
// allowedRoles.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles, _ := c.Get(ContextRoles).([]string)
			for _, role := range roles {
				if _, ok := allowed[role]; ok {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"detail": "forbidden"})
		}
	}
}
