package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/membership-service/internal/auth"
	"github.com/iliyamo/membership-service/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/membership-service/internal/middleware" // import middleware for JWT authentication and permission enforcement
)

// ManagePermission guards the administrative surface. Only principals whose
// token carries this permission may touch roles, permissions or other users.
const ManagePermission = "membership.manage"

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems use this to verify the service
	// is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication lifecycle and the account
// surface. Unauthenticated operations live under /v1/auth, while protected
// endpoints live under /v1 behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler, signer *auth.Signer) {
	// Operations that do not require an existing session: register, login,
	// refresh and logout all work on credentials or refresh tokens carried
	// in the body, never on an access token.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates: the presented refresh token dies and a new pair is
	// issued in its place.
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	// Everything below requires a valid access token.
	protected := e.Group("/v1")
	protected.Use(middleware.JWTAuth(signer))

	protected.GET("/me", a.Me)

	protected.GET("/users/me", u.Profile)
	protected.PATCH("/users/me", u.Update)
	protected.PUT("/users/me/password", u.ChangePassword)
	protected.DELETE("/users/me", u.Deactivate)
	protected.GET("/users/me/roles", u.Roles)
	protected.GET("/users/me/permissions", u.Permissions)
	protected.POST("/logout-all", u.LogoutAll)
}

// RegisterAdmin registers the management surface under /v1/admin. Every
// route requires an access token whose claims carry the manage permission.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, signer *auth.Signer) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(signer))
	g.Use(middleware.RequirePermission(ManagePermission))

	g.GET("/roles", h.ListRoles)
	g.POST("/roles", h.CreateRole)
	g.GET("/roles/:id", h.GetRole)
	g.PUT("/roles/:id", h.UpdateRole)
	g.DELETE("/roles/:id", h.DeleteRole)

	g.GET("/permissions", h.ListPermissions)
	g.POST("/permissions", h.CreatePermission)
	g.DELETE("/permissions/:id", h.DeletePermission)

	g.POST("/roles/:id/permissions/:permission_id", h.GrantPermission)
	g.DELETE("/roles/:id/permissions/:permission_id", h.RevokePermission)

	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/roles", h.UserRoles)
	g.GET("/users/:id/permissions", h.UserPermissions)
	g.POST("/users/:id/roles/:role_id", h.AssignRole)
	g.DELETE("/users/:id/roles/:role_id", h.RemoveRole)
	g.POST("/users/:id/deactivate", h.DeactivateUser)
	g.POST("/users/:id/activate", h.ActivateUser)
}
