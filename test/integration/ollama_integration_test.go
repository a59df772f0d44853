package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"kaleem-livechat/internal/constant"
	"kaleem-livechat/internal/entity"
	"kaleem-livechat/internal/service"
	"kaleem-livechat/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaReplyGeneration(t *testing.T) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		t.Skip("Skipping integration test: OLLAMA_BASE_URL not set")
	}
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "llama3"
	}

	generator := service.NewReplyGenerator(ollama.NewOllamaProvider(baseURL, model), "", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	reply, err := generator.Generate(ctx, []*entity.ChatMessage{
		{Seq: 0, Role: constant.ChatMessageRoleUser, Chat: "Hi, what can you help me with?"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)
	assert.NotEqual(t, constant.ChatFallbackReply, reply.Text, "model did not answer")
	t.Logf("Reply in %v: %s", time.Since(start), reply.Text)
}
