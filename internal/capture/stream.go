// Package capture owns the live recording path of an export: a video feed
// captured from the playback surface, an audio mixing destination carrying
// the synthesized commentary, and a recorder that folds both into an
// accumulating chunk stream.
package capture

// VideoSample is one captured frame stamped on the recording timeline.
type VideoSample struct {
	Data []byte
	PTS  int64 // milliseconds since recording start
	Key  bool
}

// AudioSample is one span of mixed PCM stamped on the recording timeline.
type AudioSample struct {
	Data []byte
	PTS  int64
}
