package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gitdev-app/backend/internal/apperr"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests to websocket connections and pumps hub
// events to them.
type Handler struct {
	hub *Hub
	log zerolog.Logger
}

func NewHandler(hub *Hub, log zerolog.Logger) *Handler {
	return &Handler{hub: hub, log: log.With().Str("component", "ws").Logger()}
}

// Serve handles GET /ws/:namespace. The requester must be authenticated;
// the middleware placed the user id in the context.
func (h *Handler) Serve(c echo.Context) error {
	namespace := c.Param("namespace")
	if !ValidNamespace(namespace) {
		return apperr.NotFound("UnknownNamespace", "unknown realtime namespace "+namespace)
	}
	userID, _ := c.Get("userID").(string)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := h.hub.Register(namespace, userID)
	defer h.hub.Unregister(client)
	defer conn.Close()

	go h.writePump(conn, client)
	h.readPump(conn, client)
	return nil
}

func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes client frames until the connection drops. Chat clients
// send typing indicators which are relayed to the other participant.
func (h *Handler) readPump(conn *websocket.Conn, client *Client) {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		h.handleClientEvent(client, &ev)
	}
}

type typingPayload struct {
	To     string `json:"to"`
	Typing bool   `json:"typing"`
}

func (h *Handler) handleClientEvent(client *Client, ev *Event) {
	if client.Namespace != NamespaceChat {
		return
	}
	switch ev.Event {
	case "typing":
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return
		}
		var p typingPayload
		if err := json.Unmarshal(raw, &p); err != nil || p.To == "" {
			return
		}
		h.hub.EmitToUser(NamespaceChat, p.To, "typing", map[string]any{
			"from":   client.UserID,
			"typing": p.Typing,
		})
	}
}
