package api

import (
	"errors"
	"net/http"

	"nutrichat/backend/internal/service"
	apperrors "nutrichat/backend/pkg/errors"
	"nutrichat/backend/pkg/logger"
	"nutrichat/backend/pkg/resilience"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles POST /message
type ChatHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *service.ChatService, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

type messageRequest struct {
	Title       string `json:"title"`
	MessageText string `json:"message_text"`
}

// SendMessage runs one chat turn. Parameters are accepted as a JSON body
// with query-parameter fallback for older clients.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("AUTH_MISSING", "Authentication required"))
		return
	}

	var req messageRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperrors.NewBadRequestError("VALIDATION_ERROR", "Invalid request format"))
			return
		}
	}
	if req.Title == "" {
		req.Title = c.Query("title")
	}
	if req.MessageText == "" {
		req.MessageText = c.Query("message_text")
	}

	reply, err := h.chat.HandleTurn(c.Request.Context(), id, req.Title, req.MessageText)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.Error(apperrors.NewBadRequestError("VALIDATION_ERROR", "message_text must not be empty"))
		case errors.Is(err, service.ErrConversationNotFound):
			c.Error(apperrors.NewNotFoundError("NOT_FOUND", "Conversation does not exist"))
		case errors.Is(err, service.ErrGenerationTimeout):
			c.Error(apperrors.NewGatewayTimeoutError("GENERATION_TIMEOUT", "Reply generation timed out"))
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.Error(apperrors.NewUpstreamError("UPSTREAM_UNAVAILABLE", "Reply generation is temporarily unavailable"))
		case errors.Is(err, service.ErrGenerationFailed):
			c.Error(apperrors.NewUpstreamError("UPSTREAM_ERROR", "Failed to generate a reply"))
		default:
			h.logger.Error("error handling chat turn", "error", err.Error())
			c.Error(apperrors.NewInternalServerError("STORAGE_ERROR", "Failed to record the chat turn"))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"response": reply})
}
