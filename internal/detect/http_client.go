package detect

import (
	"bytes"
	"context"
	"encoding/base64"
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
	requestTimeout = 90 * time.Second

	detectPrompt = "Analyze this basketball game footage and find the highlight-worthy " +
		"plays: dunks, three-pointers, steals, blocks, assists. " +
		"Return strictly valid JSON (no markdown, no code fences) matching the provided schema. " +
		"Each event needs start_time and end_time in seconds from the start of the clip, " +
		"with a couple of seconds of lead-in before the play and the follow-through after it. " +
		"Do not report the same play twice."
)

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint with
// a vision-capable model.
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
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *HTTPClient) Detect(ctx context.Context, video []byte, mimeType string) ([]highlight.Event, error) {
	if len(video) == 0 {
		return nil, errors.New("detect: empty video")
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(video)

	payload := map[string]any{
		"model":  c.model,
		"stream": false,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": detectPrompt},
					{"type": "video_url", "video_url": map[string]any{"url": dataURL}},
				},
			},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "highlight_events",
				"schema": json.RawMessage(eventsSchema),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("detection request", "model", c.model, "video_bytes", len(video))

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("detection timeout after %s (model=%s)", requestTimeout, c.model)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detection status %d: %s", resp.StatusCode, truncate(string(rb), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return nil, errors.New("detection returned no choices")
	}

	return parseEvents(raw.Choices[0].Message.Content)
}

// parseEvents extracts, schema-checks, and decodes the model's reply.
func parseEvents(content string) ([]highlight.Event, error) {
	clean, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if err := compiledEventsSchema.Validate(payload); err != nil {
		return nil, fmt.Errorf("events failed schema validation: %w", err)
	}

	var out struct {
		Events []struct {
			Type        string  `json:"type"`
			StartTime   float64 `json:"start_time"`
			EndTime     float64 `json:"end_time"`
			Description string  `json:"description"`
			Confidence  float64 `json:"confidence"`
		} `json:"events"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := make([]highlight.Event, 0, len(out.Events))
	for _, e := range out.Events {
		events = append(events, highlight.Event{
			Type:        highlight.NormalizeType(e.Type),
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			Description: strings.TrimSpace(e.Description),
			Confidence:  e.Confidence,
		})
	}
	return events, nil
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("empty model content")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
