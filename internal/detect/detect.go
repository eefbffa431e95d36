// Package detect calls the vision model that finds highlight-worthy
// moments in a basketball clip.
package detect

import (
	"context"
	"log/slog"

	"github.com/courtside/courtside-agent/internal/highlight"
)

// Client is the detection collaborator. No ordering is guaranteed in the
// returned events; callers sanitize the batch through highlight.Intake.
type Client interface {
	Detect(ctx context.Context, video []byte, mimeType string) ([]highlight.Event, error)
}

// StubClient stands in when no model API key is configured. It returns
// a small fixed set of events so the editor flow stays usable offline.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Detect(_ context.Context, video []byte, mimeType string) ([]highlight.Event, error) {
	c.logger.Info("stub detection", "bytes", len(video), "mime_type", mimeType)
	return []highlight.Event{
		{Type: highlight.TypeDunk, StartTime: 4, EndTime: 9, Description: "fast-break dunk", Confidence: 0.9},
		{Type: highlight.TypeThreePoint, StartTime: 15, EndTime: 21, Description: "catch-and-shoot three", Confidence: 0.8},
		{Type: highlight.TypeSteal, StartTime: 27, EndTime: 31, Description: "steal at half court", Confidence: 0.7},
	}, nil
}
