package api

import (
	"net/http"

	"nutrichat/backend/internal/models"
	"nutrichat/backend/internal/service"
	apperrors "nutrichat/backend/pkg/errors"
	"nutrichat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ConversationHandler handles conversation CRUD
type ConversationHandler struct {
	conversations *service.ConversationService
	logger        *logger.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations *service.ConversationService, logger *logger.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

// Create handles POST /create-conversation
func (h *ConversationHandler) Create(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("AUTH_MISSING", "Authentication required"))
		return
	}

	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError("VALIDATION_ERROR", "Invalid request format"))
		return
	}

	conversation, err := h.conversations.Create(c.Request.Context(), id, req.Title)
	if err != nil {
		switch err {
		case service.ErrConversationExists:
			c.Error(apperrors.NewConflictError("CONFLICT", "Conversation with this title already exists"))
		default:
			h.logger.Error("error creating conversation", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("STORAGE_ERROR", "Failed to create conversation"))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"title": conversation.Title})
}

// List handles GET /conversations
func (h *ConversationHandler) List(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("AUTH_MISSING", "Authentication required"))
		return
	}

	titles, err := h.conversations.ListTitles(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("error listing conversations", "error", err.Error())
		c.Error(apperrors.NewInternalServerError("STORAGE_ERROR", "Failed to list conversations"))
		return
	}

	result := make([]gin.H, 0, len(titles))
	for _, title := range titles {
		result = append(result, gin.H{"title": title})
	}

	c.JSON(http.StatusOK, result)
}
