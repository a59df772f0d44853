package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"kaleem-livechat/internal/constant"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var newline = []byte{'\n'}

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinPayload struct {
	SessionID string `json:"sessionId"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Role is what the peer announced itself as ("customer", "agent", ...).
	Role string

	// SessionID is the chat session the client receives events for. Owned
	// by the hub; only read or written under Hub.mu.
	SessionID string

	// Buffered channel of outbound messages.
	Send chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionID, role string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		Role:      role,
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.logger.Debug("Client", "Unexpected close", map[string]interface{}{"role": c.Role, "error": err.Error()})
			}
			return
		}
		c.handleFrame(data)
	}
}

// handleFrame dispatches every envelope in one inbound frame.
func (c *Client) handleFrame(data []byte) {
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var env Envelope
		if err := dec.Decode(&env); err != nil {
			if !errors.Is(err, io.EOF) {
				c.Hub.logger.Warn("Client", "Malformed frame", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		switch env.Event {
		case constant.ChatEventJoin:
			var p joinPayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				c.Hub.logger.Warn("Client", "Malformed join payload", map[string]interface{}{"error": err.Error()})
				continue
			}
			sessionID := strings.TrimSpace(p.SessionID)
			if sessionID == "" || len(sessionID) > constant.ChatSessionIdMaxLength {
				continue
			}
			c.Hub.Join(c, sessionID)
		default:
			c.Hub.logger.Debug("Client", "Ignoring event", map[string]interface{}{"event": env.Event})
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued events to the current frame, one envelope per line.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
