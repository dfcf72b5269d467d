package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"docflow_app_go/models"
	"docflow_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LoginDirectory resolves credentials (services.UserDirectory).
type LoginDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, hash string) error
}

// TokenIssuer signs bearer tokens (services.TokenService).
type TokenIssuer interface {
	Issue(user *models.User, ttl time.Duration) (string, error)
}

// AuthHandler exchanges email and password for a bearer token and lets
// users change their password.
type AuthHandler struct {
	users  LoginDirectory
	tokens TokenIssuer
	ttl    time.Duration
	logger *zap.Logger
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(users LoginDirectory, tokens TokenIssuer, ttl time.Duration, logger *zap.Logger) *AuthHandler {
	if ttl <= 0 {
		ttl = services.DefaultTokenTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{users: users, tokens: tokens, ttl: ttl, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login validates credentials and returns a token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	ctx := c.Request().Context()
	user, err := h.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	// Same answer for unknown, inactive and wrong-password accounts.
	if user == nil || !user.IsActive || !services.CheckPassword(req.Password, user.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	token, err := h.tokens.Issue(user, h.ttl)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := h.users.TouchLogin(ctx, user.ID, now); err != nil {
		h.logger.Warn("failed to record login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return okResponse(c, map[string]interface{}{
		"token":     token,
		"expiresAt": now.Add(h.ttl),
		"item":      user,
	})
}
