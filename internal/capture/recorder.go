package capture

import (
	"bytes"
	"encoding/binary"
	"sync"
)

// Negotiated output format: a framed A/V packet stream. The first chunk
// opens with the stream header; every packet is kind|pts|length|payload.
const (
	ContentType = "application/vnd.courtside.av-stream"
	FileExt     = ".cav"

	streamMagic   = "CAVS"
	streamVersion = uint16(1)

	packetVideo = byte(0x01)
	packetAudio = byte(0x02)

	// chunk cut threshold, mirrors a recorder's periodic dataavailable
	chunkSize = 64 * 1024
)

// Recorder accumulates the combined stream into an ordered sequence of
// binary chunks. Zero-size chunks are never emitted. Stop flushes the
// final chunk and then runs the finalize callback exactly once.
type Recorder struct {
	mu        sync.Mutex
	fps       int
	rate      int
	buf       bytes.Buffer
	chunks    [][]byte
	started   bool
	stopped   bool
	finalized bool
}

func NewRecorder(fps, sampleRate int) *Recorder {
	return &Recorder{fps: fps, rate: sampleRate}
}

func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	r.buf.WriteString(streamMagic)
	binary.Write(&r.buf, binary.BigEndian, streamVersion)
	binary.Write(&r.buf, binary.BigEndian, uint16(r.fps))
	binary.Write(&r.buf, binary.BigEndian, uint32(r.rate))
}

func (r *Recorder) WriteVideo(s VideoSample) {
	kind := packetVideo
	if s.Key {
		kind |= 0x80
	}
	r.writePacket(kind, s.PTS, s.Data)
}

func (r *Recorder) WriteAudio(s AudioSample) {
	r.writePacket(packetAudio, s.PTS, s.Data)
}

func (r *Recorder) writePacket(kind byte, pts int64, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.stopped {
		return
	}

	r.buf.WriteByte(kind)
	binary.Write(&r.buf, binary.BigEndian, pts)
	binary.Write(&r.buf, binary.BigEndian, uint32(len(data)))
	r.buf.Write(data)

	for r.buf.Len() >= chunkSize {
		chunk := make([]byte, chunkSize)
		copy(chunk, r.buf.Next(chunkSize))
		r.chunks = append(r.chunks, chunk)
	}
}

func (r *Recorder) flushLocked() {
	if r.buf.Len() == 0 {
		return
	}
	chunk := make([]byte, r.buf.Len())
	copy(chunk, r.buf.Bytes())
	r.buf.Reset()
	r.chunks = append(r.chunks, chunk)
}

// Stop finalizes the recording: the last partial chunk is flushed and
// onFinalized runs with the writer quiesced. Subsequent writes are
// dropped; calling Stop again is a no-op.
func (r *Recorder) Stop(onFinalized func()) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.flushLocked()
	r.finalized = true
	r.mu.Unlock()

	if onFinalized != nil {
		onFinalized()
	}
}

func (r *Recorder) Chunks() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.chunks))
	copy(out, r.chunks)
	return out
}

// Bytes assembles all accumulated chunks into the output artifact.
func (r *Recorder) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Join(r.chunks, nil)
}

func (r *Recorder) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}
