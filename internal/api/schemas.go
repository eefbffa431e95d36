package api

import (
	"time"

	"github.com/courtside/courtside-agent/internal/highlight"
	"github.com/courtside/courtside-agent/internal/store"
	"github.com/courtside/courtside-agent/internal/studio"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type UploadResponse struct {
	Status studio.Status `json:"status"`
}

type EventsResponse struct {
	Events []highlight.Event `json:"events"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply    studio.ChatMessage   `json:"reply"`
	Messages []studio.ChatMessage `json:"messages"`
}

type CommentaryResponse struct {
	Script   string `json:"script"`
	HasAudio bool   `json:"has_audio"`
}

type ExportResponse struct {
	Export ExportRecordResponse `json:"export"`
}

type ExportsResponse struct {
	Exports []ExportRecordResponse `json:"exports"`
}

type ExportRecordResponse struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	ContentType  string  `json:"content_type"`
	SizeBytes    int64   `json:"size_bytes"`
	DurationSec  float64 `json:"duration_sec"`
	SegmentCount int     `json:"segment_count"`
	Status       string  `json:"status"`
	Error        string  `json:"error,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ExportRecordToResponse(rec *store.ExportRecord) ExportRecordResponse {
	return ExportRecordResponse{
		ID:           rec.ID,
		Filename:     rec.Filename,
		ContentType:  rec.ContentType,
		SizeBytes:    rec.SizeBytes,
		DurationSec:  rec.DurationSec,
		SegmentCount: rec.SegmentCount,
		Status:       rec.Status,
		Error:        rec.Error,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
}
