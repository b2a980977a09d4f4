package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/membership-service/internal/auth"
)

// principalKey is the context key under which the authenticated principal is
// stored for downstream handlers.
const principalKey = "principal"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// through the signer and injects the resulting principal into the request
// context. The signer enforces the signing method, issuer, audience and
// expiry; every failure collapses into a single 401 so callers learn nothing
// about why a token was rejected. Protected handlers read the identity back
// via CurrentPrincipal.
func JWTAuth(signer *auth.Signer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			p, err := signer.Validate(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// CurrentPrincipal returns the authenticated principal stored by JWTAuth, or
// nil when the request is unauthenticated.
func CurrentPrincipal(c echo.Context) *auth.Principal {
	if p, ok := c.Get(principalKey).(*auth.Principal); ok {
		return p
	}
	return nil
}
