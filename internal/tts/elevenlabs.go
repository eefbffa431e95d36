package tts

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
)

const (
	elevenDefaultBaseURL = "https://api.elevenlabs.io"
	elevenDefaultVoiceID = "EXAVITQu4vr4xnSDxMaL"
	elevenModelID        = "eleven_multilingual_v2"
	elevenSampleRate     = 24000
	elevenTimeout        = 60 * time.Second
)

// ElevenLabs synthesizes over the HTTP API, requesting raw PCM so no
// decode step is needed before mixing.
type ElevenLabs struct {
	baseURL string
	key     string
	voiceID string
	logger  *slog.Logger
	client  *http.Client
}

func NewElevenLabs(baseURL, apiKey, voiceID string, logger *slog.Logger) *ElevenLabs {
	if baseURL == "" {
		baseURL = elevenDefaultBaseURL
	}
	if voiceID == "" {
		voiceID = elevenDefaultVoiceID
	}
	return &ElevenLabs{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     apiKey,
		voiceID: voiceID,
		logger:  logger,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Empty: true}, nil
	}

	body, err := json.Marshal(map[string]any{
		"model_id": elevenModelID,
		"text":     text,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=pcm_%d", e.baseURL, e.voiceID, elevenSampleRate)

	reqCtx, cancel := context.WithTimeout(ctx, elevenTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/pcm")
	if e.key != "" {
		req.Header.Set("xi-api-key", e.key)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("synthesis timeout after %s", elevenTimeout)
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("synthesis status %d: %s", resp.StatusCode, truncate(string(rb), 400))
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read audio: %w", err)
	}
	if len(pcm) == 0 {
		// provider accepted the request but had nothing to say
		return Result{Empty: true}, nil
	}

	e.logger.Debug("synthesis completed", "bytes", len(pcm))
	return Result{PCM: pcm, SampleRate: elevenSampleRate}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
