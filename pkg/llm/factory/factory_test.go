package factory

import (
	"testing"

	"kaleem-livechat/pkg/llm/canned"
	"kaleem-livechat/pkg/llm/huggingface"
	"kaleem-livechat/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(Config{})
	require.NoError(t, err)
	assert.IsType(t, &canned.Provider{}, p)

	p, err = NewLLMProvider(Config{Provider: "Ollama", Model: "llama3"})
	require.NoError(t, err)
	require.IsType(t, &ollama.OllamaProvider{}, p)
	assert.Equal(t, "http://localhost:11434", p.(*ollama.OllamaProvider).BaseURL)

	p, err = NewLLMProvider(Config{Provider: "huggingface", APIKey: "hf_test"})
	require.NoError(t, err)
	assert.IsType(t, &huggingface.HuggingFaceProvider{}, p)

	_, err = NewLLMProvider(Config{Provider: "huggingface"})
	assert.Error(t, err)

	_, err = NewLLMProvider(Config{Provider: "gpt-9000"})
	assert.Error(t, err)
}
