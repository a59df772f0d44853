package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kaleem-livechat/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceProvider_Chat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Refunds take 5 days."}}]}`))
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("hf_test", srv.URL, "meta-llama/Llama-3.1-8B-Instruct")
	answer, err := p.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "refund?"},
		{Role: "model", Content: "Sure"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Refunds take 5 days.", answer)
	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.Equal(t, "assistant", got.Messages[1].Role)
}

func TestHuggingFaceProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http status", http.StatusUnauthorized, `{"error":{"message":"bad token"}}`},
		{"error field", http.StatusOK, `{"error":{"message":"overloaded"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHuggingFaceProvider("hf_test", srv.URL, "m").Generate(context.Background(), "hi")
			assert.Error(t, err)
		})
	}
}
