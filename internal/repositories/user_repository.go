package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"estate-chat-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository is the chat core's read-mostly view of the users
// collection, which is owned by the auth/profile subsystem.
type UserRepository interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error)
	BulkUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	AppendChat(ctx context.Context, userID, chatID primitive.ObjectID) error
}

// UserRepo is the MongoDB implementation of UserRepository.
type UserRepo struct {
	users *mongo.Collection
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(d *mongo.Database) *UserRepo {
	return &UserRepo{users: d.Collection("users")}
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var user models.User
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// BulkUsers fetches multiple users in one query. Missing ids are simply
// absent from the result.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AppendChat adds a chat reference to the user's record. A user that no
// longer exists is tolerated: the chat itself is still valid, the stale
// participant just never sees it listed.
func (r *UserRepo) AppendChat(ctx context.Context, userID, chatID primitive.ObjectID) error {
	update := bson.M{"$addToSet": bson.M{"chats": chatID}}
	_, err := r.users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	return err
}
