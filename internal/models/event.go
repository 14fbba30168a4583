package models

import "time"

// Relay event types. Client frames carry addUser and sendMessage; the rest
// are emitted by the server.
const (
	EventAddUser      = "addUser"
	EventSendMessage  = "sendMessage"
	EventOnlineUsers  = "getOnlineUsers"
	EventGetMessage   = "getMessage"
	EventMessageSent  = "messageSent"
	EventMessageError = "messageError"
)

// RelayEvent is a client-to-server websocket frame.
type RelayEvent struct {
	Type   string        `json:"type"`
	UserID string        `json:"userId,omitempty"`
	Data   *RelayMessage `json:"data,omitempty"`
}

// RelayMessage carries a live chat message between two connections. It is
// forwarded as-is; the durable record is written through the REST path.
type RelayMessage struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	ChatID     string `json:"chatId"`
}

// PresenceSnapshot is broadcast to every connection whenever the set of
// online users changes.
type PresenceSnapshot struct {
	Type    string   `json:"type"`
	UserIDs []string `json:"userIds"`
}

// IncomingMessage is emitted to the receiver's connection on live delivery.
type IncomingMessage struct {
	Type      string    `json:"type"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	ChatID    string    `json:"chatId"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeliveryAck is emitted back to the sending connection: messageSent on
// delivery, messageError on an internal failure.
type DeliveryAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
