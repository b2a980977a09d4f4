package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/membership-service/internal/membership"
	"github.com/iliyamo/membership-service/internal/model"
	"github.com/iliyamo/membership-service/internal/repository"
)

// AdminHandler serves the management surface: role and permission CRUD,
// grants and account state changes. Routes using it sit behind
// RequirePermission, so every caller already holds membership.manage.
type AdminHandler struct {
	Engine *membership.Engine
}

func NewAdminHandler(engine *membership.Engine) *AdminHandler {
	return &AdminHandler{Engine: engine}
}

type roleReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

type permissionReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsActive    *bool  `json:"is_active"`
}

// pathID parses a numeric path parameter; 0 means the parameter was absent
// or malformed.
func pathID(c echo.Context, name string) uint64 {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
	}
}

// ----- roles -----

func (h *AdminHandler) ListRoles(c echo.Context) error {
	roles, err := h.Engine.Authz().Roles(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": roles})
}

func (h *AdminHandler) GetRole(c echo.Context) error {
	role, err := h.Engine.Authz().RoleByID(c.Request().Context(), pathID(c, "id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

func (h *AdminHandler) CreateRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	role := &model.Role{Name: req.Name, Description: req.Description, IsActive: true}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}
	if err := h.Engine.Authz().CreateRole(c.Request().Context(), role); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, role)
}

func (h *AdminHandler) UpdateRole(c echo.Context) error {
	ctx := c.Request().Context()
	role, err := h.Engine.Authz().RoleByID(ctx, pathID(c, "id"))
	if err != nil {
		return storeError(c, err)
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name != "" {
		role.Name = req.Name
	}
	if req.Description != "" {
		role.Description = req.Description
	}
	if req.IsActive != nil {
		role.IsActive = *req.IsActive
	}
	if err := h.Engine.Authz().UpdateRole(ctx, role); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// DeleteRole removes a role together with its permission links and user
// assignments.
func (h *AdminHandler) DeleteRole(c echo.Context) error {
	if err := h.Engine.Authz().DeleteRole(c.Request().Context(), pathID(c, "id")); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- permissions -----

func (h *AdminHandler) ListPermissions(c echo.Context) error {
	perms, err := h.Engine.Authz().Permissions(c.Request().Context())
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": perms})
}

func (h *AdminHandler) CreatePermission(c echo.Context) error {
	var req permissionReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	perm := &model.Permission{Name: req.Name, Description: req.Description, Category: req.Category, IsActive: true}
	if req.IsActive != nil {
		perm.IsActive = *req.IsActive
	}
	if err := h.Engine.Authz().CreatePermission(c.Request().Context(), perm); err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusCreated, perm)
}

func (h *AdminHandler) DeletePermission(c echo.Context) error {
	if err := h.Engine.Authz().DeletePermission(c.Request().Context(), pathID(c, "id")); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- grants -----

// GrantPermission links a permission to a role. Granting twice is a no-op.
func (h *AdminHandler) GrantPermission(c echo.Context) error {
	ctx := c.Request().Context()
	roleID, permID := pathID(c, "id"), pathID(c, "permission_id")
	if _, err := h.Engine.Authz().RoleByID(ctx, roleID); err != nil {
		return storeError(c, err)
	}
	if _, err := h.Engine.Authz().PermissionByID(ctx, permID); err != nil {
		return storeError(c, err)
	}
	if err := h.Engine.Authz().AssignPermissionToRole(ctx, roleID, permID); err != nil {
		return storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) RevokePermission(c echo.Context) error {
	removed, err := h.Engine.Authz().RemovePermissionFromRole(c.Request().Context(),
		pathID(c, "id"), pathID(c, "permission_id"))
	if err != nil {
		return storeError(c, err)
	}
	if !removed {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "permission not assigned"})
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignRole grants a role to a user through the engine so existence checks
// and the uniform envelope apply.
func (h *AdminHandler) AssignRole(c echo.Context) error {
	res := h.Engine.AssignRole(c.Request().Context(), pathID(c, "id"), pathID(c, "role_id"))
	return renderResult(c, res, http.StatusOK)
}

func (h *AdminHandler) RemoveRole(c echo.Context) error {
	res := h.Engine.RemoveRole(c.Request().Context(), pathID(c, "id"), pathID(c, "role_id"))
	return renderResult(c, res, http.StatusOK)
}

// ----- user administration -----

func (h *AdminHandler) GetUser(c echo.Context) error {
	res := h.Engine.GetUser(c.Request().Context(), pathID(c, "id"))
	return renderResult(c, res, http.StatusOK)
}

func (h *AdminHandler) UserRoles(c echo.Context) error {
	res := h.Engine.GetUserRoles(c.Request().Context(), pathID(c, "id"))
	return renderResult(c, res, http.StatusOK)
}

func (h *AdminHandler) UserPermissions(c echo.Context) error {
	res := h.Engine.GetUserPermissions(c.Request().Context(), pathID(c, "id"))
	return renderResult(c, res, http.StatusOK)
}

func (h *AdminHandler) DeactivateUser(c echo.Context) error {
	res := h.Engine.DeactivateUser(c.Request().Context(), pathID(c, "id"))
	return renderResult(c, res, http.StatusOK)
}

func (h *AdminHandler) ActivateUser(c echo.Context) error {
	res := h.Engine.ActivateUser(c.Request().Context(), pathID(c, "id"))
	return renderResult(c, res, http.StatusOK)
}
