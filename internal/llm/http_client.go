package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/courtside/courtside-agent/internal/highlight"
)

const (
	requestTimeout = 60 * time.Second

	summarizePrompt = "You are a basketball play-by-play commentator. Write an energetic, " +
		"broadcast-style commentary script covering these highlight plays in order. " +
		"Plain prose only, no stage directions, no timestamps, no markdown. " +
		"Keep it tight enough to read aloud over a short highlight reel.\n\nPlays:\n"

	chatSystemPrompt = "You are an assistant inside a basketball highlight editor. " +
		"Answer questions about the loaded game clip and its detected plays, concisely."
)

// HTTPClient speaks to an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	baseURL string
	key     string
	model   string
	logger  *slog.Logger
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey, model string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     apiKey,
		model:   model,
		logger:  logger,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *HTTPClient) Summarize(ctx context.Context, events []highlight.Event) (string, error) {
	if len(events) == 0 {
		return "", errors.New("summarize: no events")
	}
	return c.complete(ctx, []Message{
		{Role: "user", Content: summarizePrompt + EventsDigest(events)},
	})
}

func (c *HTTPClient) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("chat: no messages")
	}
	withSystem := append([]Message{{Role: "system", Content: chatSystemPrompt}}, messages...)
	return c.complete(ctx, withSystem)
}

func (c *HTTPClient) complete(ctx context.Context, messages []Message) (string, error) {
	payload := map[string]any{
		"model":    c.model,
		"stream":   false,
		"messages": messages,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("model timeout after %s (model=%s)", requestTimeout, c.model)
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model status %d: %s", resp.StatusCode, truncate(string(rb), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	content := strings.TrimSpace(raw.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("model returned empty content")
	}
	return content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
