package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/membership-service/internal/membership"
)

// errorItem pairs a stable error code with its human-readable text so API
// clients can branch on the code and humans can read the message.
type errorItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func describeErrors(codes []string) []errorItem {
	if len(codes) == 0 {
		return nil
	}
	out := make([]errorItem, 0, len(codes))
	for _, c := range codes {
		out = append(out, errorItem{Code: c, Message: membership.Describe(c)})
	}
	return out
}

// failStatus maps an engine failure to an HTTP status. The first error code
// decides; the message code breaks ties for password policy failures, which
// carry per-rule violation codes in Errors.
func failStatus(message string, errs []string) int {
	if message == membership.CodePasswordInvalid {
		return http.StatusBadRequest
	}
	code := ""
	if len(errs) > 0 {
		code = errs[0]
	}
	switch code {
	case membership.CodeInvalidCredentials, membership.CodeRefreshInvalid:
		return http.StatusUnauthorized
	case membership.CodeLoginBlocked:
		return http.StatusTooManyRequests
	case membership.CodeUsernameExists, membership.CodeEmailExists:
		return http.StatusConflict
	case membership.CodeUserNotFound, membership.CodeRoleNotFound, membership.CodePermissionNotFound:
		return http.StatusNotFound
	case membership.CodeCurrentPasswordInvalid, membership.CodeRoleNotAssigned, membership.CodePermissionNotAssigned:
		return http.StatusBadRequest
	case membership.CodeSystemError:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// renderAuth writes an AuthResult as JSON, translating codes into text at
// the boundary.
func renderAuth(c echo.Context, res membership.AuthResult, successStatus int) error {
	if !res.Success {
		return c.JSON(failStatus(res.Message, res.Errors), echo.Map{
			"success": false,
			"code":    res.Message,
			"message": membership.Describe(res.Message),
			"errors":  describeErrors(res.Errors),
		})
	}
	body := echo.Map{
		"success":      true,
		"code":         res.Message,
		"message":      membership.Describe(res.Message),
		"access_token": res.AccessToken,
		"expires_at":   res.ExpiresAt,
	}
	if res.RefreshToken != "" {
		body["refresh_token"] = res.RefreshToken
	}
	if res.User != nil {
		body["user"] = res.User
	}
	return c.JSON(successStatus, body)
}

// renderResult writes a generic engine Result as JSON.
func renderResult[T any](c echo.Context, res membership.Result[T], successStatus int) error {
	if !res.Success {
		return c.JSON(failStatus(res.Message, res.Errors), echo.Map{
			"success": false,
			"code":    res.Message,
			"message": membership.Describe(res.Message),
			"errors":  describeErrors(res.Errors),
		})
	}
	return c.JSON(successStatus, echo.Map{
		"success": true,
		"code":    res.Message,
		"message": membership.Describe(res.Message),
		"data":    res.Data,
	})
}
