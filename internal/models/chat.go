package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat is a conversation between exactly two users. The message references
// are kept in insertion order, which is also chronological order. A chat
// between the same unordered pair of users is unique.
type Chat struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Users       []primitive.ObjectID `bson:"users" json:"users"`
	Messages    []primitive.ObjectID `bson:"messages" json:"messages"`
	LastMessage string               `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	SeenBy      []primitive.ObjectID `bson:"seenBy" json:"seenBy"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Receiver returns the participant other than userID. The second return is
// false when userID is not a participant of the chat.
func (c Chat) Receiver(userID primitive.ObjectID) (primitive.ObjectID, bool) {
	found := false
	var other primitive.ObjectID
	for _, u := range c.Users {
		if u == userID {
			found = true
		} else {
			other = u
		}
	}
	if !found || other.IsZero() {
		return primitive.NilObjectID, false
	}
	return other, true
}

// SeenByUser reports whether userID is already in the seenBy set.
func (c Chat) SeenByUser(userID primitive.ObjectID) bool {
	for _, u := range c.SeenBy {
		if u == userID {
			return true
		}
	}
	return false
}

// ChatSummary is the list-view shape: the chat plus the counterpart's public
// profile. Receiver is nil when the counterpart's user record is gone.
type ChatSummary struct {
	Chat
	Receiver *PublicProfile `json:"receiver"`
}

// ChatDetail is the single-chat shape with participants and messages
// populated in place of their references. Participants are projected to
// their public profiles.
type ChatDetail struct {
	ID          primitive.ObjectID   `json:"id"`
	Users       []PublicProfile      `json:"users"`
	Messages    []Message            `json:"messages"`
	LastMessage string               `json:"lastMessage,omitempty"`
	SeenBy      []primitive.ObjectID `json:"seenBy"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}
