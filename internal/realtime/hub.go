// Package realtime pushes pipeline progress to WebSocket subscribers,
// keyed by session. Events fan out across instances via Redis pub/sub so
// the API server and the worker can run as separate processes.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Event names pushed to subscribers.
const (
	EventProgress  = "progress"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Hub maintains session_id -> set of connections and broadcasts events.
// Local broadcast plus publish to Redis for other instances.
type Hub struct {
	// sessionID -> map[clientID]*Client
	sessions map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per session
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes session events for cross-instance broadcast.
type RedisPublisher interface {
	PublishSessionEvent(sessionID, event string, payload []byte) error
}

// RedisSubscriber subscribes to session channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSession(sessionID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a session room. Starts the Redis subscription
// for the session when the first client arrives.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sessions[c.SessionID] == nil {
		h.sessions[c.SessionID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeSession(c.SessionID, func(event string, payload []byte) {
				h.Broadcast(c.SessionID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.SessionID] = cancel
			}
		}
	}
	h.sessions[c.SessionID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client subscribed to session", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID))
}

// Unregister removes a client. Cancels the Redis subscription when the
// last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.sessions[c.SessionID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.sessions, c.SessionID)
			if cancel, ok := h.subs[c.SessionID]; ok {
				cancel()
				delete(h.subs, c.SessionID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left session", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID))
}

// Broadcast sends an event to all local clients subscribed to a session.
func (h *Hub) Broadcast(sessionID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.sessions[sessionID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastAndPublish sends to local clients and publishes to Redis for
// other instances. The worker process uses this so progress reaches
// clients connected to the API server.
func (h *Hub) BroadcastAndPublish(sessionID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.Broadcast(sessionID, event, json.RawMessage(data))
	if h.redis != nil {
		_ = h.redis.PublishSessionEvent(sessionID, event, data)
	}
}

// SubscriberCount returns the number of connected clients for a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
