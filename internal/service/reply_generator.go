package service

import (
	"context"
	"strings"
	"time"

	"kaleem-livechat/internal/constant"
	"kaleem-livechat/internal/entity"
	"kaleem-livechat/internal/pkg/logger"
	"kaleem-livechat/pkg/llm"
)

const defaultReplyTimeout = 45 * time.Second

type Reply struct {
	Text    string
	Sources []map[string]interface{}
}

type IReplyGenerator interface {
	// Generate answers the newest user message in history. It only fails when
	// no reply, not even the fallback, can be produced.
	Generate(ctx context.Context, history []*entity.ChatMessage) (*Reply, error)
}

type llmReplyGenerator struct {
	provider     llm.LLMProvider
	systemPrompt string
	timeout      time.Duration
	logger       logger.ILogger
}

func NewReplyGenerator(provider llm.LLMProvider, systemPrompt string, log logger.ILogger) IReplyGenerator {
	if systemPrompt == "" {
		systemPrompt = constant.ChatDefaultSystemPrompt
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &llmReplyGenerator{
		provider:     provider,
		systemPrompt: systemPrompt,
		timeout:      defaultReplyTimeout,
		logger:       log,
	}
}

func (g *llmReplyGenerator) Generate(ctx context.Context, history []*entity.ChatMessage) (*Reply, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: g.systemPrompt})
	for _, m := range history {
		role := "user"
		if m.IsBot() {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Chat})
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		text    string
		sources []llm.Source
		err     error
	)
	if sp, ok := g.provider.(llm.SourcedProvider); ok {
		text, sources, err = sp.ChatWithSources(ctx, messages)
	} else {
		text, err = g.provider.Chat(ctx, messages)
	}

	if err != nil || strings.TrimSpace(text) == "" {
		details := map[string]interface{}{"history": len(history)}
		if err != nil {
			details["error"] = err
		}
		g.logger.Warn("ReplyGenerator", "LLM reply unavailable, using fallback", details)
		return &Reply{Text: constant.ChatFallbackReply}, nil
	}

	return &Reply{Text: strings.TrimSpace(text), Sources: sourceMaps(sources)}, nil
}

func sourceMaps(sources []llm.Source) []map[string]interface{} {
	if len(sources) == 0 {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(sources))
	for _, s := range sources {
		out = append(out, map[string]interface{}{"title": s.Title, "ref": s.Ref})
	}
	return out
}
