package livechat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	eventBuffer = 32
)

// envelope is the wire frame for both directions of the realtime channel.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WebsocketDialer connects to the chat backend's /ws endpoint.
type WebsocketDialer struct {
	URL    string
	Role   string
	Header http.Header
	Dialer *websocket.Dialer
	Logger *zap.Logger
}

var _ Dialer = (*WebsocketDialer)(nil)

// NewWebsocketDialer derives the websocket URL from the REST base URL,
// e.g. http://host:3000/api -> ws://host:3000/api/ws.
func NewWebsocketDialer(baseURL, role string, logger *zap.Logger) (*WebsocketDialer, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"

	return &WebsocketDialer{
		URL:    u.String(),
		Role:   role,
		Logger: logger,
	}, nil
}

func (d *WebsocketDialer) Dial(ctx context.Context, sessionID string) (RealtimeConn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}
	q := u.Query()
	q.Set("sessionId", sessionID)
	if d.Role != "" {
		q.Set("role", d.Role)
	}
	u.RawQuery = q.Encode()

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &wsConn{
		conn:   conn,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("module", "livechat.websocket")),
	}
	go c.readPump()
	return c, nil
}

type wsConn struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	logger *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *wsConn) Events() <-chan Event {
	return c.events
}

func (c *wsConn) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", event, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}

// readPump decodes frames into events until the connection fails. The server
// may batch several envelopes into one frame.
func (c *wsConn) readPump() {
	defer close(c.events)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPingHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		err := c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		dec := json.NewDecoder(bytes.NewReader(data))
		for {
			var env envelope
			if err := dec.Decode(&env); err != nil {
				if !errors.Is(err, io.EOF) {
					c.logger.Warn("malformed websocket frame", zap.Error(err))
				}
				break
			}
			select {
			case c.events <- Event{Name: env.Event, Data: env.Data}:
			case <-c.done:
				return
			}
		}
	}
}
