package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"estate-chat-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat persistence. Lookups that take a userID are
// membership-constrained: a chat the user does not belong to behaves exactly
// like a chat that does not exist.
type ChatRepository interface {
	CreateChat(ctx context.Context, userID, receiverID primitive.ObjectID) (models.Chat, error)
	FindChatBetween(ctx context.Context, userID, receiverID primitive.ObjectID) (models.Chat, error)
	GetChatForUser(ctx context.Context, chatID, userID primitive.ObjectID) (models.Chat, error)
	GetChatsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Chat, error)
	MarkSeen(ctx context.Context, chatID, userID primitive.ObjectID) error
	ApplyMessage(ctx context.Context, chatID primitive.ObjectID, msg models.Message) error
}

// ChatRepo is the MongoDB implementation of ChatRepository.
type ChatRepo struct {
	chats *mongo.Collection
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(d *mongo.Database) *ChatRepo {
	return &ChatRepo{chats: d.Collection("chats")}
}

// CreateChat inserts a fresh chat between the two users. Pair uniqueness is
// the caller's concern via FindChatBetween.
func (r *ChatRepo) CreateChat(ctx context.Context, userID, receiverID primitive.ObjectID) (models.Chat, error) {
	now := time.Now().UTC()
	chat := models.Chat{
		ID:        primitive.NewObjectID(),
		Users:     []primitive.ObjectID{userID, receiverID},
		Messages:  []primitive.ObjectID{},
		SeenBy:    []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.chats.InsertOne(ctx, chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// FindChatBetween looks up the chat containing both users, regardless of
// the order they were stored in.
func (r *ChatRepo) FindChatBetween(ctx context.Context, userID, receiverID primitive.ObjectID) (models.Chat, error) {
	filter := bson.M{"users": bson.M{"$all": []primitive.ObjectID{userID, receiverID}}}

	var chat models.Chat
	err := r.chats.FindOne(ctx, filter).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// GetChatForUser fetches a chat constrained to the user's membership.
func (r *ChatRepo) GetChatForUser(ctx context.Context, chatID, userID primitive.ObjectID) (models.Chat, error) {
	filter := bson.M{"_id": chatID, "users": userID}

	var chat models.Chat
	err := r.chats.FindOne(ctx, filter).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// GetChatsByIDs resolves a user's chat references in one query. Results come
// back in the order of ids, which is the order the references were appended
// to the user's record; `$in` alone returns natural collection order.
func (r *ChatRepo) GetChatsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Chat, error) {
	if len(ids) == 0 {
		return []models.Chat{}, nil
	}

	cursor, err := r.chats.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	chats := []models.Chat{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return orderChatsByIDs(ids, chats), nil
}

// orderChatsByIDs reorders chats to follow ids. Ids without a matching chat
// are skipped; a duplicate reference yields the chat once.
func orderChatsByIDs(ids []primitive.ObjectID, chats []models.Chat) []models.Chat {
	byID := make(map[primitive.ObjectID]models.Chat, len(chats))
	for _, chat := range chats {
		byID[chat.ID] = chat
	}

	ordered := make([]models.Chat, 0, len(chats))
	for _, id := range ids {
		if chat, ok := byID[id]; ok {
			ordered = append(ordered, chat)
			delete(byID, id)
		}
	}
	return ordered
}

// MarkSeen extends seenBy with the user. Idempotent.
func (r *ChatRepo) MarkSeen(ctx context.Context, chatID, userID primitive.ObjectID) error {
	filter := bson.M{"_id": chatID, "users": userID}
	update := bson.M{
		"$addToSet": bson.M{"seenBy": userID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}

	res, err := r.chats.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}

// ApplyMessage updates the chat summary for a newly created message: the
// message reference is appended, lastMessage is overwritten and seenBy is
// reset to the sender alone. This is the single code path keeping the
// summary fields in step with the messages sequence.
func (r *ChatRepo) ApplyMessage(ctx context.Context, chatID primitive.ObjectID, msg models.Message) error {
	update := bson.M{
		"$push": bson.M{"messages": msg.ID},
		"$set": bson.M{
			"lastMessage": msg.Text,
			"seenBy":      []primitive.ObjectID{msg.Sender},
			"updatedAt":   time.Now().UTC(),
		},
	}

	res, err := r.chats.UpdateOne(ctx, bson.M{"_id": chatID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}
