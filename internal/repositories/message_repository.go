package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estate-chat-service/internal/models"
)

// MessageRepository defines interactions for chat messages. Messages are
// immutable once created.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatID, senderID primitive.ObjectID, text string) (models.Message, error)
	ListByChat(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error)
}

// MessageRepo is the MongoDB implementation of MessageRepository.
type MessageRepo struct {
	messages *mongo.Collection
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(d *mongo.Database) *MessageRepo {
	return &MessageRepo{messages: d.Collection("messages")}
}

// CreateMessage stores a new message in the chat.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatID, senderID primitive.ObjectID, text string) (models.Message, error) {
	msg := models.Message{
		ID:        primitive.NewObjectID(),
		ChatID:    chatID,
		Sender:    senderID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.messages.InsertOne(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListByChat returns the chat's messages in chronological order.
func (r *MessageRepo) ListByChat(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.messages.Find(ctx, bson.M{"chatId": chatID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
