// Package llm talks to the language model behind the editor's chat and
// the commentary script generator.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/courtside/courtside-agent/internal/highlight"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the script-generation collaborator.
type Client interface {
	// Summarize turns the detected events into a commentary script.
	Summarize(ctx context.Context, events []highlight.Event) (string, error)
	// Chat answers a free-form user message with the conversation so far.
	Chat(ctx context.Context, messages []Message) (string, error)
}

// EventsDigest renders the event list the way prompts expect it.
func EventsDigest(events []highlight.Event) string {
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "- [%.1fs-%.1fs] %s", e.StartTime, e.EndTime, e.Type)
		if e.Description != "" {
			b.WriteString(": ")
			b.WriteString(e.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// StubClient keeps chat and commentary usable without a configured model.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Summarize(_ context.Context, events []highlight.Event) (string, error) {
	c.logger.Info("stub summarize", "events", len(events))
	if len(events) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("What a sequence we have for you tonight. ")
	for _, e := range events {
		switch e.Type {
		case highlight.TypeDunk:
			b.WriteString("A thunderous dunk brings the crowd to its feet. ")
		case highlight.TypeThreePoint:
			b.WriteString("From way downtown, and it drops. ")
		case highlight.TypeSteal:
			b.WriteString("Picked clean at half court, off to the races. ")
		case highlight.TypeBlock:
			b.WriteString("Rejected at the rim, not in this house. ")
		default:
			b.WriteString("Another great play in this one. ")
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (c *StubClient) Chat(_ context.Context, messages []Message) (string, error) {
	c.logger.Info("stub chat", "messages", len(messages))
	return "I'm running without a configured model, so I can't weigh in on that. " +
		"Set an API key to enable analysis chat.", nil
}
