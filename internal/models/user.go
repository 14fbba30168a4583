package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is owned by the auth/profile subsystem. The chat core only reads
// username and avatar for display and appends chat references on creation.
type User struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username string               `bson:"username" json:"username"`
	Avatar   string               `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Chats    []primitive.ObjectID `bson:"chats,omitempty" json:"chats,omitempty"`
}

// PublicProfile is the subset of user fields exposed inside chat responses.
// A user's own chat references never cross this boundary.
type PublicProfile struct {
	ID       primitive.ObjectID `json:"id"`
	Username string             `json:"username"`
	Avatar   string             `json:"avatar,omitempty"`
}

// Public strips the user down to its displayable fields.
func (u User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
