package integration

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kaleem-livechat/internal/bootstrap"
	"kaleem-livechat/internal/config"
	"kaleem-livechat/internal/server"
	"kaleem-livechat/pkg/livechat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	baseURL   string
	container *bootstrap.Container
}

// startServer runs the full backend on a random port with in-memory storage
// and the canned reply provider.
func startServer(t *testing.T, replyMode string) *testServer {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		App: config.AppConfig{
			Environment:        "test",
			LogFilePath:        filepath.Join(dir, "app.log"),
			WsLogFilePath:      filepath.Join(dir, "realtime.log"),
			CorsAllowedOrigins: "*",
		},
		Chat: config.ChatConfig{
			ReplyMode:     replyMode,
			ReplyTopic:    "CHAT_REPLY_REQUESTED",
			HistoryWindow: 10,
		},
		Ai: config.AIConfig{LLMProvider: "canned"},
	}

	container := bootstrap.NewContainer(nil, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	if container.ConsumerService != nil {
		require.NoError(t, container.ConsumerService.Consume(ctx))
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := server.New(cfg, container)
	go func() { _ = srv.Serve(ln) }()

	t.Cleanup(func() {
		_ = srv.Shutdown()
		cancel()
		container.Close()
	})
	return &testServer{baseURL: "http://" + ln.Addr().String() + "/api", container: container}
}

func (s *testServer) conversation(t *testing.T, storage livechat.Storage, realtime bool) *livechat.Conversation {
	t.Helper()
	conv, err := livechat.NewConversation(livechat.Options{
		BaseURL:         s.baseURL,
		DisableRealtime: !realtime,
		Storage:         storage,
		PollInterval:    100 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(conv.Close)
	return conv
}

func (s *testServer) waitForPush(t *testing.T, conv *livechat.Conversation) {
	t.Helper()
	require.Eventually(t, func() bool {
		return conv.State() == livechat.StateConnectedPush && s.container.WebSocketHub.ClientCount(conv.SessionID()) > 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestLiveChat_SyncReplyOverPush(t *testing.T) {
	srv := startServer(t, config.ReplyModeSync)
	storage := livechat.NewMemoryStorage()
	ctx := context.Background()

	conv := srv.conversation(t, storage, true)
	require.NoError(t, conv.Start(ctx))
	srv.waitForPush(t, conv)

	require.NoError(t, conv.Send(ctx, "What does the pricing look like?"))

	// Welcome entry, user message, reply.
	transcript := conv.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, livechat.WelcomeText, transcript[0].Text)
	assert.Nil(t, transcript[0].RatingIndex)
	assert.Equal(t, livechat.SenderUser, transcript[1].Sender)
	assert.Equal(t, livechat.SenderBot, transcript[2].Sender)
	assert.Contains(t, transcript[2].Text, "$19/mo")
	require.NotNil(t, transcript[2].RatingIndex)
	assert.Equal(t, 1, *transcript[2].RatingIndex)

	// The pushed copy of the same reply must not be appended twice.
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, conv.Transcript(), 3)

	require.NoError(t, conv.Rate(ctx, 1, livechat.RatingUp))
	assert.True(t, strings.HasSuffix(conv.Transcript()[2].Text, livechat.PositiveSuffix))

	err := conv.Rate(ctx, 0, livechat.RatingDown)
	assert.ErrorIs(t, err, livechat.ErrUnknownMessage)

	// A new view of the same session restores the transcript and its rating.
	conv.Close()
	restored := srv.conversation(t, storage, false)
	assert.Equal(t, conv.SessionID(), restored.SessionID())
	require.NoError(t, restored.Start(ctx))

	transcript = restored.Transcript()
	require.Len(t, transcript, 3)
	require.NotNil(t, transcript[2].Rating)
	assert.Equal(t, livechat.RatingUp, *transcript[2].Rating)
	assert.True(t, strings.HasSuffix(transcript[2].Text, livechat.PositiveSuffix))
}

func TestLiveChat_AsyncReplyOverPush(t *testing.T) {
	srv := startServer(t, config.ReplyModeAsync)
	ctx := context.Background()

	conv := srv.conversation(t, livechat.NewMemoryStorage(), true)
	require.NoError(t, conv.Start(ctx))
	srv.waitForPush(t, conv)

	require.NoError(t, conv.Send(ctx, "When are you open?"))

	require.Eventually(t, func() bool { return len(conv.Transcript()) == 3 }, 3*time.Second, 10*time.Millisecond)
	bot := conv.Transcript()[2]
	assert.Equal(t, livechat.SenderBot, bot.Sender)
	assert.Contains(t, bot.Text, "9:00")
	require.NotNil(t, bot.RatingIndex)
	assert.Equal(t, 1, *bot.RatingIndex)
}

func TestLiveChat_AsyncReplyOverPolling(t *testing.T) {
	srv := startServer(t, config.ReplyModeAsync)
	ctx := context.Background()

	conv := srv.conversation(t, livechat.NewMemoryStorage(), false)
	require.NoError(t, conv.Start(ctx))
	require.Eventually(t, func() bool { return conv.State() == livechat.StateConnectedPull }, time.Second, 10*time.Millisecond)

	require.NoError(t, conv.Send(ctx, "Can I get a refund?"))
	assert.Equal(t, livechat.SenderUser, conv.Transcript()[1].Sender)

	require.Eventually(t, func() bool { return len(conv.Transcript()) == 3 }, 3*time.Second, 20*time.Millisecond)
	assert.Contains(t, conv.Transcript()[2].Text, "refund")
}
