package service

import (
	"context"
	"errors"
	"sync"

	"kaleem-livechat/internal/dto"
	"kaleem-livechat/internal/entity"
	"kaleem-livechat/pkg/events"
	"kaleem-livechat/pkg/llm"
)

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	fails   int
	calls   int
	history [][]*entity.ChatMessage
}

func (g *fakeGenerator) Generate(ctx context.Context, history []*entity.ChatMessage) (*Reply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.history = append(g.history, history)
	if g.fails > 0 {
		g.fails--
		return nil, errors.New("generator unavailable")
	}
	if g.err != nil {
		return nil, g.err
	}
	return &Reply{Text: g.text}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type emitted struct {
	SessionID string
	Event     string
	Payload   interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (e *fakeEmitter) Emit(sessionID, event string, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emitted{sessionID, event, payload})
	return nil
}

func (e *fakeEmitter) all() []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]emitted(nil), e.events...)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeEvents) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType())
	}
	return out
}

type fakeQueue struct {
	mu       sync.Mutex
	requests []dto.ReplyRequestedMessage
	err      error
}

func (q *fakeQueue) RequestReply(ctx context.Context, req dto.ReplyRequestedMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, req)
	return nil
}

type fakeProvider struct {
	reply    string
	sources  []llm.Source
	err      error
	messages []llm.Message
}

func (p *fakeProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	p.messages = messages
	return p.reply, p.err
}

func (p *fakeProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.reply, p.err
}

type fakeSourcedProvider struct {
	fakeProvider
}

func (p *fakeSourcedProvider) ChatWithSources(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, []llm.Source, error) {
	p.messages = messages
	return p.reply, p.sources, p.err
}
