package ws

import "time"

// ConnInfo carries the identity and tracing context of one websocket
// connection. UserID stays empty until the client announces itself.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
