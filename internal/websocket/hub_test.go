package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"kaleem-livechat/internal/constant"
	"kaleem-livechat/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func newTestClient(hub *Hub, sessionID string, buffer int) *Client {
	return &Client{Hub: hub, Role: "customer", SessionID: sessionID, Send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame received")
		return Envelope{}
	}
}

func assertNothingReceived(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.Send:
		t.Fatalf("unexpected frame %s", frame)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_EmitReachesEverySessionConnection(t *testing.T) {
	hub := startHub(t)
	tab1 := newTestClient(hub, "s-1", 4)
	tab2 := newTestClient(hub, "s-1", 4)
	other := newTestClient(hub, "s-2", 4)
	hub.Register(tab1)
	hub.Register(tab2)
	hub.Register(other)
	require.Eventually(t, func() bool { return hub.ClientCount("s-1") == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Emit("s-1", constant.ChatEventBotReply, map[string]interface{}{"text": "$19/mo", "msgIdx": 1}))

	for _, c := range []*Client{tab1, tab2} {
		env := receive(t, c)
		assert.Equal(t, constant.ChatEventBotReply, env.Event)
		assert.JSONEq(t, `{"text":"$19/mo","msgIdx":1}`, string(env.Data))
	}
	assertNothingReceived(t, other)
}

func TestHub_JoinMovesClientBetweenSessions(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, "", 4)
	hub.Register(client)

	hub.Join(client, "s-1")
	require.Eventually(t, func() bool { return hub.ClientCount("s-1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Join(client, "s-2")
	require.Eventually(t, func() bool { return hub.ClientCount("s-2") == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.ClientCount("s-1"))

	require.NoError(t, hub.Emit("s-1", constant.ChatEventTyping, struct{}{}))
	assertNothingReceived(t, client)
}

func TestHub_UnregisterClosesSendChannel(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, "s-1", 4)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount("s-1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount("s-1") == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-client.Send
	assert.False(t, ok)

	// A second unregister is a no-op.
	hub.Unregister(client)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	slow := newTestClient(hub, "s-1", 1)
	hub.Register(slow)
	require.Eventually(t, func() bool { return hub.ClientCount("s-1") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Emit("s-1", constant.ChatEventTyping, struct{}{}))
	require.NoError(t, hub.Emit("s-1", constant.ChatEventTyping, struct{}{}))

	require.Eventually(t, func() bool { return hub.ClientCount("s-1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	client := newTestClient(hub, "s-1", 4)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount("s-1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	hub.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	_, ok := <-client.Send
	assert.False(t, ok)

	late := newTestClient(hub, "s-1", 1)
	hub.Register(late)
	_, ok = <-late.Send
	assert.False(t, ok)
}

func TestClient_HandleFrameJoinsSession(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, "", 4)
	hub.Register(client)

	client.handleFrame([]byte(`{"event":"typing","data":{}}` + "\n" + `{"event":"join","data":{"sessionId":" s-9 "}}`))
	require.Eventually(t, func() bool { return hub.ClientCount("s-9") == 1 }, time.Second, 5*time.Millisecond)

	client.handleFrame([]byte(`not json`))
	client.handleFrame([]byte(`{"event":"join","data":{"sessionId":""}}`))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount("s-9"))
}
