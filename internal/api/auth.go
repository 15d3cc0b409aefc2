package api

import (
	"net/http"

	"nutrichat/backend/internal/models"
	"nutrichat/backend/internal/service"
	apperrors "nutrichat/backend/pkg/errors"
	"nutrichat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration and token refresh
type AuthHandler struct {
	users  *service.UserService
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// CreateUser handles POST /create-user
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	user, token, err := h.users.Register(&req)
	if err != nil {
		switch err {
		case service.ErrUserAlreadyExists:
			c.Error(apperrors.NewConflictError("CONFLICT", "User already exists"))
		default:
			h.logger.Error("error creating user", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("STORAGE_ERROR", "Failed to create user account"))
		}
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	c.JSON(http.StatusCreated, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// RefreshToken handles POST /refresh-token. Credentials arrive form-encoded,
// OAuth2 password-grant style.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		c.Error(apperrors.NewBadRequestError("VALIDATION_ERROR", "username and password are required"))
		return
	}

	user, token, err := h.users.Authenticate(username, password)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			c.Header("WWW-Authenticate", "Bearer")
			c.Error(apperrors.NewUnauthorizedError("AUTH_INVALID", "Incorrect username or password"))
		default:
			h.logger.Error("error during token refresh", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("STORAGE_ERROR", "An error occurred during login"))
		}
		return
	}

	h.logger.Info("token refreshed", "user_id", user.ID)

	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
