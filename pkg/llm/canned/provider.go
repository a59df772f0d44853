package canned

import (
	"context"
	"strings"
	"unicode"

	"kaleem-livechat/pkg/llm"
)

// Entry is one canned answer, chosen when the visitor's message mentions any
// of its keywords.
type Entry struct {
	Title    string
	Keywords []string
	Answer   string
}

var DefaultEntries = []Entry{
	{
		Title:    "Pricing",
		Keywords: []string{"price", "pricing", "cost", "plan", "subscription"},
		Answer:   "Our plans start at $19/mo and you can cancel any time. The full comparison is on our pricing page.",
	},
	{
		Title:    "Opening hours",
		Keywords: []string{"hours", "open", "available", "support time"},
		Answer:   "Our support team is online Sunday to Thursday, 9:00 to 18:00.",
	},
	{
		Title:    "Refunds",
		Keywords: []string{"refund", "money back", "cancel"},
		Answer:   "You can request a refund within 14 days of purchase from your billing settings.",
	},
	{
		Title:    "Human agent",
		Keywords: []string{"human", "agent", "person", "representative"},
		Answer:   "I've noted that you'd like to talk to a person. An agent will join this chat shortly.",
	},
}

const DefaultAnswer = "Thanks for your message! Could you tell me a bit more so I can help?"

// Provider answers from a fixed keyword table. It is the default reply
// backend and needs no external service.
type Provider struct {
	entries  []Entry
	fallback string
}

var (
	_ llm.LLMProvider     = (*Provider)(nil)
	_ llm.SourcedProvider = (*Provider)(nil)
)

func NewProvider(entries []Entry) *Provider {
	if entries == nil {
		entries = DefaultEntries
	}
	return &Provider{entries: entries, fallback: DefaultAnswer}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	answer, _, err := p.ChatWithSources(ctx, history, options...)
	return answer, err
}

func (p *Provider) ChatWithSources(ctx context.Context, history []llm.Message, options ...llm.Option) (string, []llm.Source, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	question := normalize(llm.LastUserMessage(history))
	for _, e := range p.entries {
		for _, kw := range e.Keywords {
			// Keywords match at the start of a word, so "plan" matches
			// "plans" but not "explain".
			if strings.Contains(question, " "+kw) {
				return e.Answer, []llm.Source{{Title: e.Title, Ref: "faq"}}, nil
			}
		}
	}
	return p.fallback, nil, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return " " + strings.Join(strings.Fields(mapped), " ") + " "
}
