package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"estate-chat-service/internal/models"
	"estate-chat-service/internal/observability"
)

const relayRoutingKey = "ws_events.relay"

// Hub owns the active relay connections and the presence tracker. REST
// handlers never touch it; live delivery is a separate path the client
// invokes alongside the persisted write.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client // connID -> client
	presence *Presence
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*client),
		presence: NewPresence(),
	}
}

// Presence exposes the tracker for lookups.
func (h *Hub) Presence() *Presence {
	return h.presence
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) removeClient(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
}

// Announce associates the connection with a user and broadcasts the new
// presence snapshot to every connection, the announcer included.
func (h *Hub) Announce(userID, connID string) {
	if userID == "" {
		return
	}

	h.presence.Register(userID, connID)

	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if ok {
		c.setUserID(userID)
	}

	observability.IncWSEvent("relay", "announce")
	h.broadcastPresence()
}

// Disconnect drops the connection. The presence entry is removed only when
// this connection still owns it, so a stale disconnect cannot evict a user
// who has since reconnected.
func (h *Hub) Disconnect(connID string) {
	h.removeClient(connID)
	if _, removed := h.presence.Unregister(connID); removed {
		h.broadcastPresence()
	}
}

// Forward delivers a live message to the receiver's connection when one is
// registered and acknowledges the sender. An offline receiver is a silent
// no-op: the persisted-message path is the durable fallback.
func (h *Hub) Forward(senderConnID string, msg models.RelayMessage) error {
	connID, online := h.presence.Lookup(msg.ReceiverID)
	if !online {
		observability.IncWSEvent("relay", "forward_offline")
		return nil
	}

	h.mu.RLock()
	receiver := h.clients[connID]
	sender := h.clients[senderConnID]
	h.mu.RUnlock()
	if receiver == nil {
		observability.IncWSEvent("relay", "forward_offline")
		return nil
	}

	delivery := models.IncomingMessage{
		Type:      models.EventGetMessage,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		ChatID:    msg.ChatID,
		CreatedAt: time.Now().UTC(),
	}
	if err := receiver.send(delivery); err != nil {
		h.dropClient(receiver, err)
		return err
	}
	observability.IncWSEvent("relay", "forward_delivered")

	if sender != nil {
		ack := models.DeliveryAck{Type: models.EventMessageSent, Success: true, Message: "message delivered"}
		if err := sender.send(ack); err != nil {
			h.dropClient(sender, err)
		}
	}
	return nil
}

// broadcastPresence sends the current online-user set to every connection.
func (h *Hub) broadcastPresence() {
	snapshot := models.PresenceSnapshot{
		Type:    models.EventOnlineUsers,
		UserIDs: h.presence.Online(),
	}
	observability.SetPresenceOnline(len(snapshot.UserIDs))

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(snapshot); err != nil {
			h.dropClient(c, err)
		}
	}
}

// dropClient closes a connection after a failed write. The connection's
// read loop observes the close and runs the full disconnect cleanup.
func (h *Hub) dropClient(c *client, err error) {
	info := c.snapshotInfo()
	log.Printf("websocket write error conn_id=%s: %v", c.id, err)
	observability.IncWSEvent("relay", "ws_error")
	_ = observability.PublishEvent(context.Background(), relayRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   wsEventPayload("ws_error", info, err.Error()),
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
	c.conn.Close()
}

func wsEventPayload(event string, info ConnInfo, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
