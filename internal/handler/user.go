package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/membership-service/internal/membership"
	"github.com/iliyamo/membership-service/internal/middleware"
)

// UserHandler serves the authenticated user's own account: profile reads and
// patches, password changes and session management.
type UserHandler struct {
	Engine *membership.Engine
}

func NewUserHandler(engine *membership.Engine) *UserHandler {
	return &UserHandler{Engine: engine}
}

type updateProfileReq struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// subject returns the authenticated user's ID, or 0 when no principal is
// present on the request.
func subject(c echo.Context) uint64 {
	if p := middleware.CurrentPrincipal(c); p != nil {
		return p.UserID
	}
	return 0
}

// Profile returns the caller's stored profile.
func (h *UserHandler) Profile(c echo.Context) error {
	uid := subject(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res := h.Engine.GetUser(c.Request().Context(), uid)
	return renderResult(c, res, http.StatusOK)
}

// Update patches the caller's profile. Absent fields stay untouched;
// changing the email re-runs the uniqueness check and resets confirmation.
func (h *UserHandler) Update(c echo.Context) error {
	uid := subject(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res := h.Engine.UpdateUser(c.Request().Context(), uid, membership.UpdateUserInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	return renderResult(c, res, http.StatusOK)
}

// ChangePassword swaps the caller's password after verifying the current
// one. A successful change revokes every refresh token the user holds.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	uid := subject(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password/new_password required"})
	}
	res := h.Engine.ChangePassword(c.Request().Context(), uid, membership.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	return renderResult(c, res, http.StatusOK)
}

// LogoutAll revokes every live refresh token the caller holds, ending all
// sessions across devices.
func (h *UserHandler) LogoutAll(c echo.Context) error {
	uid := subject(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res := h.Engine.LogoutAllDevices(c.Request().Context(), uid)
	return renderResult(c, res, http.StatusOK)
}

// Deactivate soft-disables the caller's own account and revokes all
// sessions. Reactivation requires an administrator.
func (h *UserHandler) Deactivate(c echo.Context) error {
	uid := subject(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res := h.Engine.DeactivateUser(c.Request().Context(), uid)
	return renderResult(c, res, http.StatusOK)
}

// Roles lists the caller's active role names.
func (h *UserHandler) Roles(c echo.Context) error {
	uid := subject(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res := h.Engine.GetUserRoles(c.Request().Context(), uid)
	return renderResult(c, res, http.StatusOK)
}

// Permissions lists the caller's effective permissions, deduplicated across
// roles.
func (h *UserHandler) Permissions(c echo.Context) error {
	uid := subject(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res := h.Engine.GetUserPermissions(c.Request().Context(), uid)
	return renderResult(c, res, http.StatusOK)
}
