// Package audio holds the decoded commentary buffer and the raw-PCM
// decode transform.
package audio

import (
	"encoding/binary"
	"errors"
	"math"
)

// DefaultSampleRate is the commentary track rate used across the system.
const DefaultSampleRate = 24000

// DefaultChannels is the commentary channel count (mono).
const DefaultChannels = 1

var ErrEmptyPayload = errors.New("audio: empty payload")

// Buffer is decoded PCM: float32 samples in [-1, 1], interleaved when
// Channels > 1.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate*b.Channels)
}

// DecodePCM16 converts little-endian signed 16-bit PCM into a Buffer.
// Deterministic for a given input; a trailing odd byte is rejected.
func DecodePCM16(raw []byte, sampleRate, channels int) (*Buffer, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(raw)%2 != 0 {
		return nil, errors.New("audio: PCM16 payload has odd length")
	}
	if sampleRate <= 0 {
		return nil, errors.New("audio: sample rate must be positive")
	}
	if channels <= 0 {
		return nil, errors.New("audio: channel count must be positive")
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(v) / float32(math.MaxInt16+1)
	}

	return &Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
	}, nil
}
