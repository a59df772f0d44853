package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"kaleem-livechat/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel is the Redis channel hubs use to forward events to the
// instance holding the session's connections.
const ClusterChannel = "chat_events"

type membership struct {
	client    *Client
	sessionID string
}

type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionID string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

type Hub struct {
	// All registered clients, attached to a session or not.
	members map[*Client]struct{}

	// Clients by chat session id. A session may be open in several tabs.
	sessions map[string][]*Client

	register   chan *Client
	unregister chan *Client
	join       chan membership

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication. Optional.
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger

	done      chan struct{}
	closeOnce sync.Once
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		members:    make(map[*Client]struct{}),
		sessions:   make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
		done:       make(chan struct{}),
	}
}

// Run processes membership changes until Close is called.
func (h *Hub) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.members[client] = struct{}{}
			if client.SessionID != "" {
				h.attachLocked(client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID, "role": client.Role})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.members[client]; ok {
				delete(h.members, client)
				h.detachLocked(client)
				close(client.Send)
			}
			h.mu.Unlock()

		case m := <-h.join:
			h.mu.Lock()
			if _, ok := h.members[m.client]; ok && m.client.SessionID != m.sessionID {
				h.detachLocked(m.client)
				m.client.SessionID = m.sessionID
				h.attachLocked(m.client)
				h.logger.Info("Hub", "Client joined session", map[string]interface{}{"session_id": m.sessionID, "role": m.client.Role})
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.members {
				close(client.Send)
			}
			h.members = make(map[*Client]struct{})
			h.sessions = make(map[string][]*Client)
			h.mu.Unlock()
			return
		}
	}
}

// Close stops Run and disconnects every client.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join moves client to sessionID.
func (h *Hub) Join(client *Client, sessionID string) {
	select {
	case h.join <- membership{client: client, sessionID: sessionID}:
	case <-h.done:
	}
}

// ClientCount returns the number of local connections attached to sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Emit sends one event to every connection of the session, on this instance
// and, through Redis, on the others.
func (h *Hub) Emit(sessionID, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}

	h.deliverLocal(sessionID, frame)

	if h.rdb != nil {
		msg, _ := json.Marshal(clusterMessage{Origin: h.instanceID, SessionID: sessionID, Message: frame})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, msg).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
	}
	return nil
}

func (h *Hub) deliverLocal(sessionID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.sessions[sessionID] {
		select {
		case client.Send <- frame:
		default:
			h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
			go h.Unregister(client)
		}
	}
}

func (h *Hub) attachLocked(client *Client) {
	h.sessions[client.SessionID] = append(h.sessions[client.SessionID], client)
}

func (h *Hub) detachLocked(client *Client) {
	clients := h.sessions[client.SessionID]
	for i, c := range clients {
		if c == client {
			clients = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(clients) == 0 {
		delete(h.sessions, client.SessionID)
		return
	}
	h.sessions[client.SessionID] = clients
}

// subscribeToRedis delivers events published by other instances to the
// sessions connected here.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(payload.SessionID, payload.Message)
		}
	}
}
