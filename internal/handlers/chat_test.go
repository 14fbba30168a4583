package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"estate-chat-service/internal/mocks"
	"estate-chat-service/internal/models"
	"estate-chat-service/internal/repositories"
)

func setupChatRouter(handler *ChatHandler, callerID primitive.ObjectID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", callerID.Hex())
		c.Next()
	})
	r.GET("/chats", handler.ListChats)
	r.POST("/chats", handler.StartChat)
	r.GET("/chats/:chat_id", handler.GetChat)
	r.PUT("/chats/:chat_id/seen", handler.MarkChatRead)
	return r
}

func TestListChatsSuccess(t *testing.T) {
	caller := primitive.NewObjectID()
	friend := primitive.NewObjectID()
	chatID := primitive.NewObjectID()

	chatRepo := new(mocks.ChatRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, userRepo, nil)
	router := setupChatRouter(handler, caller)

	userRepo.On("GetUser", mock.Anything, caller).
		Return(models.User{ID: caller, Username: "alice", Chats: []primitive.ObjectID{chatID}}, nil).Once()
	chatRepo.On("GetChatsByIDs", mock.Anything, []primitive.ObjectID{chatID}).
		Return([]models.Chat{{ID: chatID, Users: []primitive.ObjectID{caller, friend}, LastMessage: "hello"}}, nil).Once()
	userRepo.On("BulkUsers", mock.Anything, []primitive.ObjectID{friend}).
		Return([]models.User{{ID: friend, Username: "bob", Avatar: "bob.png"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chats []models.ChatSummary `json:"chats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Chats, 1)
	require.NotNil(t, resp.Chats[0].Receiver)
	assert.Equal(t, "bob", resp.Chats[0].Receiver.Username)
	assert.Equal(t, "hello", resp.Chats[0].LastMessage)

	chatRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestListChatsMissingReceiverIsNull(t *testing.T) {
	caller := primitive.NewObjectID()
	gone := primitive.NewObjectID()
	chatID := primitive.NewObjectID()

	chatRepo := new(mocks.ChatRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, userRepo, nil)
	router := setupChatRouter(handler, caller)

	userRepo.On("GetUser", mock.Anything, caller).
		Return(models.User{ID: caller, Chats: []primitive.ObjectID{chatID}}, nil).Once()
	chatRepo.On("GetChatsByIDs", mock.Anything, []primitive.ObjectID{chatID}).
		Return([]models.Chat{{ID: chatID, Users: []primitive.ObjectID{caller, gone}}}, nil).Once()
	userRepo.On("BulkUsers", mock.Anything, []primitive.ObjectID{gone}).
		Return([]models.User{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chats []models.ChatSummary `json:"chats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Chats, 1)
	assert.Nil(t, resp.Chats[0].Receiver)
}

func TestListChatsUserNotFound(t *testing.T) {
	caller := primitive.NewObjectID()
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), nil, userRepo, nil)
	router := setupChatRouter(handler, caller)

	userRepo.On("GetUser", mock.Anything, caller).
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestStartChatReturnsExistingChat(t *testing.T) {
	caller := primitive.NewObjectID()
	receiver := primitive.NewObjectID()
	existing := models.Chat{ID: primitive.NewObjectID(), Users: []primitive.ObjectID{caller, receiver}}

	chatRepo := new(mocks.ChatRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, userRepo, nil)
	router := setupChatRouter(handler, caller)

	userRepo.On("GetUser", mock.Anything, caller).Return(models.User{ID: caller}, nil).Once()
	chatRepo.On("FindChatBetween", mock.Anything, caller, receiver).Return(existing, nil).Once()

	body := bytes.NewBufferString(fmt.Sprintf(`{"receiverId":%q}`, receiver.Hex()))
	req := httptest.NewRequest(http.MethodPost, "/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp, "chat")
	assert.NotContains(t, resp, "newChat")

	// No CreateChat or AppendChat expectations were set; AssertExpectations
	// fails if the handler tried to create a duplicate.
	chatRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestStartChatCreatesAndLinksBothUsers(t *testing.T) {
	caller := primitive.NewObjectID()
	receiver := primitive.NewObjectID()
	created := models.Chat{ID: primitive.NewObjectID(), Users: []primitive.ObjectID{caller, receiver}}

	chatRepo := new(mocks.ChatRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, userRepo, nil)
	router := setupChatRouter(handler, caller)

	userRepo.On("GetUser", mock.Anything, caller).Return(models.User{ID: caller}, nil).Once()
	chatRepo.On("FindChatBetween", mock.Anything, caller, receiver).
		Return(models.Chat{}, repositories.ErrChatNotFound).Once()
	chatRepo.On("CreateChat", mock.Anything, caller, receiver).Return(created, nil).Once()
	userRepo.On("AppendChat", mock.Anything, caller, created.ID).Return(nil).Once()
	userRepo.On("AppendChat", mock.Anything, receiver, created.ID).Return(nil).Once()

	body := bytes.NewBufferString(fmt.Sprintf(`{"receiverId":%q}`, receiver.Hex()))
	req := httptest.NewRequest(http.MethodPost, "/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp, "newChat")

	chatRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestStartChatWithSelfRejected(t *testing.T) {
	caller := primitive.NewObjectID()
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), nil, new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, caller)

	body := bytes.NewBufferString(fmt.Sprintf(`{"receiverId":%q}`, caller.Hex()))
	req := httptest.NewRequest(http.MethodPost, "/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartChatInvalidReceiverID(t *testing.T) {
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), nil, new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, primitive.NewObjectID())

	req := httptest.NewRequest(http.MethodPost, "/chats", bytes.NewBufferString(`{"receiverId":"not-an-id"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChatMarksSeenByCaller(t *testing.T) {
	caller := primitive.NewObjectID()
	friend := primitive.NewObjectID()
	chatID := primitive.NewObjectID()
	chat := models.Chat{
		ID:     chatID,
		Users:  []primitive.ObjectID{caller, friend},
		SeenBy: []primitive.ObjectID{friend},
	}

	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(chatRepo, messageRepo, userRepo, nil)
	router := setupChatRouter(handler, caller)

	chatRepo.On("GetChatForUser", mock.Anything, chatID, caller).Return(chat, nil).Once()
	chatRepo.On("MarkSeen", mock.Anything, chatID, caller).Return(nil).Once()
	userRepo.On("BulkUsers", mock.Anything, chat.Users).
		Return([]models.User{{ID: caller, Username: "alice"}, {ID: friend, Username: "bob"}}, nil).Once()
	messageRepo.On("ListByChat", mock.Anything, chatID).
		Return([]models.Message{{ID: primitive.NewObjectID(), ChatID: chatID, Sender: friend, Text: "hello"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/"+chatID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chat models.ChatDetail `json:"chat"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.Chat.SeenBy, caller)
	assert.Contains(t, resp.Chat.SeenBy, friend)
	require.Len(t, resp.Chat.Messages, 1)
	assert.Equal(t, "hello", resp.Chat.Messages[0].Text)

	chatRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestGetChatProjectsParticipantProfiles(t *testing.T) {
	caller := primitive.NewObjectID()
	friend := primitive.NewObjectID()
	chatID := primitive.NewObjectID()
	friendOtherChat := primitive.NewObjectID()
	chat := models.Chat{ID: chatID, Users: []primitive.ObjectID{caller, friend}}

	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(chatRepo, messageRepo, userRepo, nil)
	router := setupChatRouter(handler, caller)

	chatRepo.On("GetChatForUser", mock.Anything, chatID, caller).Return(chat, nil).Once()
	chatRepo.On("MarkSeen", mock.Anything, chatID, caller).Return(nil).Once()
	userRepo.On("BulkUsers", mock.Anything, chat.Users).
		Return([]models.User{
			{ID: caller, Username: "alice"},
			{ID: friend, Username: "bob", Avatar: "bob.png", Chats: []primitive.ObjectID{chatID, friendOtherChat}},
		}, nil).Once()
	messageRepo.On("ListByChat", mock.Anything, chatID).Return([]models.Message{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/"+chatID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// Participants are projected to public profiles; the other party's chat
	// references must never leak into the response.
	body := rec.Body.String()
	assert.NotContains(t, body, friendOtherChat.Hex())
	assert.NotContains(t, body, `"chats"`)

	var resp struct {
		Chat models.ChatDetail `json:"chat"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Chat.Users, 2)
	assert.Equal(t, friend, resp.Chat.Users[1].ID)
	assert.Equal(t, "bob", resp.Chat.Users[1].Username)
	assert.Equal(t, "bob.png", resp.Chat.Users[1].Avatar)
}

func TestGetChatNotParticipantIsNotFound(t *testing.T) {
	caller := primitive.NewObjectID()
	chatID := primitive.NewObjectID()

	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, caller)

	chatRepo.On("GetChatForUser", mock.Anything, chatID, caller).
		Return(models.Chat{}, repositories.ErrChatNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/"+chatID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	chatRepo.AssertExpectations(t)
}

func TestGetChatInvalidID(t *testing.T) {
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, primitive.NewObjectID())

	req := httptest.NewRequest(http.MethodGet, "/chats/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkChatReadIdempotent(t *testing.T) {
	caller := primitive.NewObjectID()
	chatID := primitive.NewObjectID()

	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, caller)

	chatRepo.On("MarkSeen", mock.Anything, chatID, caller).Return(nil).Twice()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPut, "/chats/"+chatID.Hex()+"/seen", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	chatRepo.AssertExpectations(t)
}

func TestMarkChatReadNotFound(t *testing.T) {
	caller := primitive.NewObjectID()
	chatID := primitive.NewObjectID()

	chatRepo := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chatRepo, nil, new(mocks.UserRepositoryMock), nil)
	router := setupChatRouter(handler, caller)

	chatRepo.On("MarkSeen", mock.Anything, chatID, caller).
		Return(repositories.ErrChatNotFound).Once()

	req := httptest.NewRequest(http.MethodPut, "/chats/"+chatID.Hex()+"/seen", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	chatRepo.AssertExpectations(t)
}
