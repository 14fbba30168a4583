package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"estate-chat-service/internal/models"
	"estate-chat-service/internal/observability"
)

// RelayHandler upgrades relay connections and runs the event protocol:
// announce presence, forward messages to online receivers, broadcast
// presence snapshots. A connection starts anonymous; identity is attached
// by the addUser event.
type RelayHandler struct {
	hub *Hub
}

// NewRelayHandler constructs a RelayHandler.
func NewRelayHandler(hub *Hub) *RelayHandler {
	return &RelayHandler{hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and serves its event loop.
func (h *RelayHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("estate-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	cl := &client{id: info.ConnID, conn: conn, info: info}
	h.hub.addClient(cl)

	observability.IncWSActive("relay")
	observability.IncWSEvent("relay", "ws_connect")
	_ = observability.PublishEvent(ctx, relayRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload("ws_connect", info, ""),
	}, observability.BuildHeaders(requestID, traceID))

	go func() {
		var closeReason string
		defer func() {
			h.hub.Disconnect(cl.id)
			observability.DecWSActive("relay")
			observability.IncWSEvent("relay", "ws_disconnect")
			_ = observability.PublishEvent(ctx, relayRoutingKey, observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   wsEventPayload("ws_disconnect", cl.snapshotInfo(), closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("relay", "ws_error")
					_ = observability.PublishEvent(ctx, relayRoutingKey, observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   wsEventPayload("ws_error", cl.snapshotInfo(), closeReason),
					}, observability.BuildHeaders(requestID, traceID))
				}
				return
			}
			h.handleEvent(cl, payload)
		}
	}()
}

// handleEvent dispatches one client frame. Malformed or unknown frames are
// tolerated; a failure while forwarding is reported to the sender only.
func (h *RelayHandler) handleEvent(c *client, payload []byte) {
	var event models.RelayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return
	}

	switch event.Type {
	case models.EventAddUser:
		h.hub.Announce(event.UserID, c.id)
	case models.EventSendMessage:
		if event.Data == nil {
			return
		}
		if err := h.hub.Forward(c.id, *event.Data); err != nil {
			_ = c.send(models.DeliveryAck{
				Type:    models.EventMessageError,
				Success: false,
				Error:   err.Error(),
			})
		}
	}
}
