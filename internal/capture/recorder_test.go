package capture

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestRecorder_HeaderAndPacketFraming(t *testing.T) {
	r := NewRecorder(15, 24000)
	r.Start()
	r.WriteVideo(VideoSample{Data: []byte{0xAA, 0xBB}, PTS: 40, Key: true})
	r.WriteAudio(AudioSample{Data: []byte{0x01}, PTS: 50})
	r.Stop(nil)

	out := r.Bytes()
	if !bytes.HasPrefix(out, []byte(streamMagic)) {
		t.Fatalf("stream does not start with magic, got %x", out[:4])
	}
	if v := binary.BigEndian.Uint16(out[4:6]); v != uint16(streamVersion) {
		t.Errorf("version = %d, want %d", v, streamVersion)
	}
	if fps := binary.BigEndian.Uint16(out[6:8]); fps != 15 {
		t.Errorf("fps = %d, want 15", fps)
	}
	if rate := binary.BigEndian.Uint32(out[8:12]); rate != 24000 {
		t.Errorf("sample rate = %d, want 24000", rate)
	}

	// first packet: keyframe video
	p := out[12:]
	if p[0] != packetVideo|0x80 {
		t.Errorf("packet kind = %#x, want keyframe video", p[0])
	}
	if pts := int64(binary.BigEndian.Uint64(p[1:9])); pts != 40 {
		t.Errorf("pts = %d, want 40", pts)
	}
	if n := binary.BigEndian.Uint32(p[9:13]); n != 2 {
		t.Errorf("payload length = %d, want 2", n)
	}
	if !bytes.Equal(p[13:15], []byte{0xAA, 0xBB}) {
		t.Errorf("payload = %x", p[13:15])
	}
	if p[15] != packetAudio {
		t.Errorf("second packet kind = %#x, want audio", p[15])
	}
}

func TestRecorder_ChunkCutAtThreshold(t *testing.T) {
	r := NewRecorder(15, 24000)
	r.Start()

	payload := make([]byte, chunkSize/2)
	r.WriteVideo(VideoSample{Data: payload, PTS: 0})
	if got := len(r.Chunks()); got != 0 {
		t.Fatalf("chunks after half-threshold write = %d, want 0", got)
	}
	r.WriteVideo(VideoSample{Data: payload, PTS: 40})
	if got := len(r.Chunks()); got != 1 {
		t.Fatalf("chunks after crossing threshold = %d, want 1", got)
	}
	r.Stop(nil)
	chunks := r.Chunks()
	if got := len(chunks); got != 2 {
		t.Fatalf("chunks after stop = %d, want 2", got)
	}
	if len(chunks[0]) != chunkSize {
		t.Errorf("cut chunk = %d bytes, want exactly %d", len(chunks[0]), chunkSize)
	}
	for i, c := range chunks {
		if len(c) == 0 {
			t.Errorf("chunk %d is empty", i)
		}
	}
	wantTotal := 12 + 2*(13+len(payload))
	if got := len(r.Bytes()); got != wantTotal {
		t.Errorf("stream = %d bytes, want %d", got, wantTotal)
	}
}

func TestRecorder_LargeWriteCutsBoundedChunks(t *testing.T) {
	r := NewRecorder(15, 24000)
	r.Start()

	payload := make([]byte, 3*chunkSize)
	r.WriteVideo(VideoSample{Data: payload, PTS: 0})
	if got := len(r.Chunks()); got != 3 {
		t.Fatalf("chunks after oversized write = %d, want 3", got)
	}
	r.Stop(nil)

	chunks := r.Chunks()
	if got := len(chunks); got != 4 {
		t.Fatalf("chunks after stop = %d, want 4", got)
	}
	for i := 0; i < 3; i++ {
		if len(chunks[i]) != chunkSize {
			t.Errorf("chunk %d = %d bytes, want exactly %d", i, len(chunks[i]), chunkSize)
		}
	}

	out := r.Bytes()
	if got, want := len(out), 12+13+len(payload); got != want {
		t.Fatalf("stream = %d bytes, want %d", got, want)
	}
	if string(out[:4]) != streamMagic {
		t.Errorf("stream does not open with the header magic")
	}
}

func TestRecorder_StopFinalizesOnce(t *testing.T) {
	r := NewRecorder(15, 24000)
	r.Start()
	r.WriteVideo(VideoSample{Data: []byte{1}, PTS: 0})

	calls := 0
	r.Stop(func() { calls++ })
	r.Stop(func() { calls++ })
	if calls != 1 {
		t.Errorf("finalize callbacks = %d, want 1", calls)
	}
	if !r.Finalized() {
		t.Error("Finalized() = false after Stop")
	}

	before := len(r.Bytes())
	r.WriteVideo(VideoSample{Data: []byte{2}, PTS: 10})
	if len(r.Bytes()) != before {
		t.Error("write after Stop changed the stream")
	}
}

func TestRecorder_EmptyRecordingFlushesHeaderOnly(t *testing.T) {
	r := NewRecorder(15, 24000)
	r.Start()
	r.Stop(nil)

	out := r.Bytes()
	if len(out) != 12 {
		t.Fatalf("empty recording = %d bytes, want 12-byte header", len(out))
	}
}

func TestRecorder_WriteBeforeStartDropped(t *testing.T) {
	r := NewRecorder(15, 24000)
	r.WriteVideo(VideoSample{Data: []byte{1}, PTS: 0})
	r.Start()
	r.Stop(nil)
	if len(r.Bytes()) != 12 {
		t.Error("write before Start was recorded")
	}
}
