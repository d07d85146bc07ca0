// Package realtime fans server events out to connected websocket clients,
// grouped by namespace. A Redis pub/sub bridge relays events across
// instances so a client connected anywhere still receives them.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Namespaces clients may attach to.
const (
	NamespacePosts         = "posts"
	NamespaceFollows       = "follows"
	NamespaceUsers         = "users"
	NamespaceChat          = "chat"
	NamespaceNotifications = "notifications"
)

// ValidNamespace reports whether ns is one a client may join.
func ValidNamespace(ns string) bool {
	switch ns {
	case NamespacePosts, NamespaceFollows, NamespaceUsers, NamespaceChat, NamespaceNotifications:
		return true
	}
	return false
}

// Event is the wire frame pushed to clients.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Client is one websocket connection attached to a namespace. UserID is
// set from the access token so user-targeted events can find it.
type Client struct {
	Namespace string
	UserID    string
	Send      chan []byte
}

// Hub tracks clients per namespace and broadcasts events to them.
type Hub struct {
	redis   *redis.Client
	log     zerolog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

func NewHub(redisClient *redis.Client, log zerolog.Logger) *Hub {
	h := &Hub{
		redis:   redisClient,
		log:     log.With().Str("component", "realtime").Logger(),
		clients: map[string]map[*Client]struct{}{},
	}
	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

// Register attaches a new client to a namespace.
func (h *Hub) Register(namespace, userID string) *Client {
	client := &Client{
		Namespace: namespace,
		UserID:    userID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[namespace] == nil {
		h.clients[namespace] = map[*Client]struct{}{}
	}
	h.clients[namespace][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if nsClients, ok := h.clients[client.Namespace]; ok {
		delete(nsClients, client)
		if len(nsClients) == 0 {
			delete(h.clients, client.Namespace)
		}
	}
	close(client.Send)
}

// Emit broadcasts an event to every client in the namespace, here and
// (through Redis) on every other instance. Delivery is best effort, slow
// clients are skipped.
func (h *Hub) Emit(namespace, event string, payload any) {
	frame, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}

	h.broadcastLocal(namespace, "", frame)

	if h.redis != nil {
		if err := h.redis.Publish(context.Background(), redisChannel(namespace, ""), frame).Err(); err != nil {
			h.log.Error().Err(err).Str("namespace", namespace).Msg("redis publish error")
		}
	}
}

// EmitToUser delivers an event only to the clients a single user has open
// in the namespace.
func (h *Hub) EmitToUser(namespace, userID, event string, payload any) {
	frame, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}

	h.broadcastLocal(namespace, userID, frame)

	if h.redis != nil {
		if err := h.redis.Publish(context.Background(), redisChannel(namespace, userID), frame).Err(); err != nil {
			h.log.Error().Err(err).Str("namespace", namespace).Msg("redis publish error")
		}
	}
}

// broadcastLocal delivers frame to matching clients. The read lock is held
// for the whole iteration: Unregister deletes from the map and closes Send
// under the write lock, so a send can never race a close or a map write.
func (h *Hub) broadcastLocal(namespace, userID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[namespace] {
		if userID != "" && client.UserID != userID {
			continue
		}
		select {
		case client.Send <- frame:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "realtime:*")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		namespace, userID := parseChannel(msg.Channel)
		if namespace == "" {
			continue
		}
		h.broadcastLocal(namespace, userID, []byte(msg.Payload))
	}
}

func redisChannel(namespace, userID string) string {
	if userID == "" {
		return "realtime:" + namespace
	}
	return "realtime:" + namespace + ":" + userID
}

// parseChannel splits "realtime:{namespace}" or
// "realtime:{namespace}:{userID}".
func parseChannel(ch string) (namespace, userID string) {
	const prefix = "realtime:"
	if !strings.HasPrefix(ch, prefix) {
		return "", ""
	}
	rest := ch[len(prefix):]
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		return rest[:i], rest[i+1:]
	}
	return rest, ""
}
