package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// client wraps one websocket connection. The mutex serializes writes,
// because targeted deliveries and presence broadcasts run on different
// goroutines, and guards info, which the announce path mutates after the
// read loop has started.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
	info ConnInfo
}

func (c *client) send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *client) setUserID(userID string) {
	c.mu.Lock()
	c.info.UserID = userID
	c.mu.Unlock()
}

func (c *client) snapshotInfo() ConnInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}
