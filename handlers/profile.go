package handlers

import (
	"net/http"

	"docflow_app_go/middleware"
	"docflow_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	current := middleware.GetCurrentUser(c)
	if current == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "all password fields are required")
	}

	ctx := c.Request().Context()
	user, err := h.users.FindByEmail(ctx, current.Email)
	if err != nil {
		return err
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	if !services.CheckPassword(req.CurrentPassword, user.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "current password is incorrect")
	}
	if req.NewPassword != req.ConfirmPassword {
		return echo.NewHTTPError(http.StatusBadRequest, "new passwords do not match")
	}
	if err := services.ValidatePassword(req.NewPassword); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	hashed, err := services.HashPassword(req.NewPassword)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update password")
	}
	if err := h.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	h.logger.Info("password changed", zap.String("user_id", user.ID))
	return okResponse(c, map[string]interface{}{"message": "Password changed successfully"})
}
