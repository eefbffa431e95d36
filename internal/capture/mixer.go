package capture

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/courtside/courtside-agent/internal/audio"
)

// Mixer is the audio mixing destination: buffer sources connect to it and
// their samples merge into the single audio track of the recording. The
// surface's own audio never connects here, so the commentary is the only
// sound in the export.
type Mixer struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	sources    []*mixerSource
}

type mixerSource struct {
	buf    *audio.Buffer
	cursor int
}

func NewMixer(sampleRate, channels int) *Mixer {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	if channels <= 0 {
		channels = audio.DefaultChannels
	}
	return &Mixer{sampleRate: sampleRate, channels: channels}
}

func (m *Mixer) SampleRate() int { return m.sampleRate }

// Connect attaches a buffer source that plays from its beginning, once.
func (m *Mixer) Connect(buf *audio.Buffer) {
	if buf == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, &mixerSource{buf: buf})
}

// Pull mixes the next span of output as little-endian PCM16. live reports
// whether any source still has samples left; once all sources drain, Pull
// keeps returning empty spans.
func (m *Mixer) Pull(seconds float64) (data []byte, live bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seconds <= 0 || len(m.sources) == 0 {
		return nil, m.remainingLocked() > 0
	}

	n := int(seconds*float64(m.sampleRate)) * m.channels
	if n <= 0 {
		return nil, m.remainingLocked() > 0
	}

	mixed := make([]float32, n)
	produced := 0
	for _, src := range m.sources {
		avail := len(src.buf.Samples) - src.cursor
		if avail <= 0 {
			continue
		}
		take := n
		if avail < take {
			take = avail
		}
		for i := 0; i < take; i++ {
			mixed[i] += src.buf.Samples[src.cursor+i]
		}
		src.cursor += take
		if take > produced {
			produced = take
		}
	}

	if produced == 0 {
		return nil, false
	}

	data = make([]byte, 2*produced)
	for i := 0; i < produced; i++ {
		v := mixed[i]
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(data[2*i:], uint16(int16(v*math.MaxInt16)))
	}
	return data, m.remainingLocked() > 0
}

func (m *Mixer) remainingLocked() int {
	remaining := 0
	for _, src := range m.sources {
		if left := len(src.buf.Samples) - src.cursor; left > remaining {
			remaining = left
		}
	}
	return remaining
}
