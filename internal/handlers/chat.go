package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"estate-chat-service/internal/models"
	"estate-chat-service/internal/repositories"
	"estate-chat-service/internal/telemetry"
)

// ChatHandler manages the chat directory endpoints: listing, detail,
// creation and seen-state.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		audit:       audit,
	}
}

// ListChats returns the caller's chats, each enriched with the counterpart's
// public profile. All counterpart profiles are fetched in one batch.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	user, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get chats"})
		return
	}

	chats, err := h.chatRepo.GetChatsByIDs(c.Request.Context(), user.Chats)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get chats"})
		return
	}

	receiverIDs := make([]primitive.ObjectID, 0, len(chats))
	for _, chat := range chats {
		if receiverID, ok := chat.Receiver(userID); ok {
			receiverIDs = append(receiverIDs, receiverID)
		}
	}

	profiles, err := h.userRepo.BulkUsers(c.Request.Context(), receiverIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get chats"})
		return
	}
	profileByID := make(map[primitive.ObjectID]models.PublicProfile, len(profiles))
	for _, p := range profiles {
		profileByID[p.ID] = p.Public()
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := models.ChatSummary{Chat: chat}
		if receiverID, ok := chat.Receiver(userID); ok {
			if profile, found := profileByID[receiverID]; found {
				summary.Receiver = &profile
			}
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"chats": summaries})
}

// GetChat returns one chat with participants and messages populated and
// marks it seen by the caller. A chat the caller does not belong to is
// indistinguishable from a missing one.
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	chat, err := h.chatRepo.GetChatForUser(c.Request.Context(), chatID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get chat"})
		return
	}

	if err := h.chatRepo.MarkSeen(c.Request.Context(), chatID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get chat"})
		return
	}
	if !chat.SeenByUser(userID) {
		chat.SeenBy = append(chat.SeenBy, userID)
	}

	users, err := h.userRepo.BulkUsers(c.Request.Context(), chat.Users)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get chat"})
		return
	}
	participants := make([]models.PublicProfile, 0, len(users))
	for _, u := range users {
		participants = append(participants, u.Public())
	}

	msgs, err := h.messageRepo.ListByChat(c.Request.Context(), chatID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get chat"})
		return
	}

	detail := models.ChatDetail{
		ID:          chat.ID,
		Users:       participants,
		Messages:    msgs,
		LastMessage: chat.LastMessage,
		SeenBy:      chat.SeenBy,
		CreatedAt:   chat.CreatedAt,
		UpdatedAt:   chat.UpdatedAt,
	}

	c.JSON(http.StatusOK, gin.H{"chat": detail})
}

// StartChat creates a chat between the caller and the receiver, or returns
// the existing one. Creation is idempotent on the unordered user pair.
func (h *ChatHandler) StartChat(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req struct {
		ReceiverID string `json:"receiverId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receiverId is required"})
		return
	}
	receiverID, err := primitive.ObjectIDFromHex(req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver id"})
		return
	}
	if receiverID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	if _, err := h.userRepo.GetUser(c.Request.Context(), userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add chat"})
		return
	}

	existing, err := h.chatRepo.FindChatBetween(c.Request.Context(), userID, receiverID)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "chat already exists", "chat": existing})
		return
	}
	if !errors.Is(err, repositories.ErrChatNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add chat"})
		return
	}

	chat, err := h.chatRepo.CreateChat(c.Request.Context(), userID, receiverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add chat"})
		return
	}

	// Link the chat to both participants. A receiver record that no longer
	// exists is tolerated; the chat stays valid for the caller.
	if err := h.userRepo.AppendChat(c.Request.Context(), userID, chat.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add chat"})
		return
	}
	if err := h.userRepo.AppendChat(c.Request.Context(), receiverID, chat.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add chat"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "chat created", requestIDFromContext(c), callerIDForAudit(c))
	c.JSON(http.StatusOK, gin.H{"newChat": chat})
}

// MarkChatRead extends the chat's seenBy set with the caller. Idempotent.
func (h *ChatHandler) MarkChatRead(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	if err := h.chatRepo.MarkSeen(c.Request.Context(), chatID, userID); err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read chat"})
		return
	}

	c.Status(http.StatusNoContent)
}

func callerID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

func chatIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	chatID, err := primitive.ObjectIDFromHex(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return primitive.NilObjectID, false
	}
	return chatID, true
}
