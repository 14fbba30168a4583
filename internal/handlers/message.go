package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"estate-chat-service/internal/repositories"
	"estate-chat-service/internal/telemetry"
)

// MessageHandler appends persisted messages to chats. Live delivery is a
// separate relay operation the client invokes alongside this one; this
// handler only writes the durable record.
type MessageHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		audit:       audit,
	}
}

// PostMessage stores a message in a chat the caller belongs to and updates
// the chat summary through the apply-message path.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	if _, err := h.chatRepo.GetChatForUser(c.Request.Context(), chatID, userID); err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add message"})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), chatID, userID, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add message"})
		return
	}

	if err := h.chatRepo.ApplyMessage(c.Request.Context(), chatID, msg); err != nil {
		// The message document exists but the chat summary was not updated;
		// the next send through this path repairs lastMessage and seenBy.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add message"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "message created", requestIDFromContext(c), callerIDForAudit(c))
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
