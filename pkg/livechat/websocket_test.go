package livechat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWebsocketDialer_URL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:3000/api", "ws://localhost:3000/api/ws"},
		{"https://chat.example.com/api/", "wss://chat.example.com/api/ws"},
		{"ws://localhost:3000", "ws://localhost:3000/ws"},
	}
	for _, tt := range tests {
		d, err := NewWebsocketDialer(tt.base, "customer", nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, d.URL)
	}

	_, err := NewWebsocketDialer("ftp://example.com", "customer", nil)
	assert.Error(t, err)
}

func TestWebsocketDialer_RoundTrip(t *testing.T) {
	joined := make(chan envelope, 1)
	closeServer := make(chan struct{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ws", r.URL.Path)
		assert.Equal(t, "s-1", r.URL.Query().Get("sessionId"))
		assert.Equal(t, "customer", r.URL.Query().Get("role"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Errorf("read join: %v", err)
			return
		}
		joined <- env

		// Two envelopes batched into a single frame.
		frame := `{"event":"typing","data":{}}` + "\n" + `{"event":"bot_reply","data":{"text":"hello","msgIdx":1}}`
		conn.WriteMessage(websocket.TextMessage, []byte(frame))

		<-closeServer
	}))
	defer srv.Close()

	d, err := NewWebsocketDialer(srv.URL+"/api", "customer", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := d.Dial(ctx, "s-1")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Emit(EventJoin, joinPayload{SessionID: "s-1"}))
	select {
	case env := <-joined:
		assert.Equal(t, EventJoin, env.Event)
		var p joinPayload
		require.NoError(t, json.Unmarshal(env.Data, &p))
		assert.Equal(t, "s-1", p.SessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("join not received")
	}

	var got []Event
	for len(got) < 2 {
		select {
		case ev := <-conn.Events():
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("events not received")
		}
	}
	assert.Equal(t, EventTyping, got[0].Name)
	assert.Equal(t, EventBotReply, got[1].Name)

	var msg BotMessage
	require.NoError(t, json.Unmarshal(got[1].Data, &msg))
	assert.Equal(t, BotMessage{Text: "hello", MsgIdx: 1}, msg)

	// Server going away closes the events channel.
	close(closeServer)
	select {
	case _, ok := <-conn.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after server close")
	}
}

func TestWebsocketDialer_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d, err := NewWebsocketDialer(srv.URL, "customer", nil)
	require.NoError(t, err)

	_, err = d.Dial(context.Background(), "s-1")
	assert.Error(t, err)
}
