// Package tts synthesizes the commentary script into raw speech audio.
package tts

import (
	"context"
	"log/slog"
	"math"
	"strings"
)

// Result is the three-way synthesis outcome: audio, or a valid empty
// result (nothing to say / unsupported content), distinct from an error.
type Result struct {
	// PCM is little-endian signed 16-bit mono audio.
	PCM        []byte
	SampleRate int
	Empty      bool
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Result, error)
}

// Stub generates a quiet deterministic tone sized to the script, keeping
// the commentary and export flow usable without a speech provider.
type Stub struct {
	logger *slog.Logger
}

func NewStub(logger *slog.Logger) *Stub {
	return &Stub{logger: logger}
}

func (s *Stub) Synthesize(_ context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Empty: true}, nil
	}

	const sampleRate = 24000
	// roughly 15 characters of script per second of speech
	seconds := float64(len(text)) / 15.0
	if seconds < 1 {
		seconds = 1
	}
	n := int(seconds * sampleRate)

	pcm := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		v := int16(3000 * math.Sin(2*math.Pi*220*float64(i)/sampleRate))
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(v >> 8)
	}

	s.logger.Info("stub synthesis", "chars", len(text), "seconds", seconds)
	return Result{PCM: pcm, SampleRate: sampleRate}, nil
}
