package handler

import (
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/membership-service/internal/membership"
	"github.com/iliyamo/membership-service/internal/middleware"
)

// AuthHandler exposes the authentication lifecycle over HTTP. All decisions
// live in the engine; the handler binds requests, forwards them and maps the
// resulting envelope onto HTTP statuses.
type AuthHandler struct {
	Engine *membership.Engine
}

func NewAuthHandler(engine *membership.Engine) *AuthHandler {
	return &AuthHandler{Engine: engine}
}

// ----- DTOs -----

type registerReq struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}
type loginReq struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates an account and returns a token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	res := h.Engine.Register(c.Request().Context(), membership.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	return renderAuth(c, res, http.StatusCreated)
}

// Login verifies credentials and returns a new token pair. The client IP and
// User-Agent feed the lockout guard and the refresh token's session metadata.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Login) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "login/password required"})
	}

	res := h.Engine.Login(c.Request().Context(),
		membership.LoginInput{Login: req.Login, Password: req.Password},
		c.RealIP(), c.Request().UserAgent())
	return renderAuth(c, res, http.StatusOK)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A replayed token yields 401 with no side effects.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	res := h.Engine.RefreshToken(c.Request().Context(), strings.TrimSpace(req.RefreshToken))
	return renderAuth(c, res, http.StatusOK)
}

// Logout revokes the presented refresh token. Revoking a token that is
// already dead still reports success, so clients can log out blindly.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	res := h.Engine.Logout(c.Request().Context(), strings.TrimSpace(req.RefreshToken))
	return renderResult(c, res, http.StatusOK)
}

// Me echoes the identity baked into the access token. No database round
// trip: everything comes from validated claims.
func (h *AuthHandler) Me(c echo.Context) error {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":     p.UserID,
		"username":    p.Username,
		"email":       p.Email,
		"roles":       p.Roles,
		"permissions": p.Permissions,
	})
}
