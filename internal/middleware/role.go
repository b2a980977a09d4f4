package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequirePermission returns a middleware enforcing that the authenticated
// principal holds at least one of the named permissions. Permissions are
// resolved from the token claims, so a freshly granted permission takes
// effect on the next token refresh. Requests without a principal or without
// a matching permission are rejected with 403 Forbidden. It assumes JWTAuth
// ran earlier in the chain.
func RequirePermission(permissions ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := CurrentPrincipal(c)
			if p == nil {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			for _, perm := range permissions {
				if p.HasPermission(perm) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}

// RequireRole returns a middleware enforcing that the authenticated
// principal holds one of the named roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := CurrentPrincipal(c)
			if p == nil {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			for _, role := range roles {
				if p.InRole(role) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}
