// Package playback models the shared playhead of the loaded clip and
// serves its bytes to the browser with range support.
package playback

import "errors"

var ErrNoMedia = errors.New("playback: no media loaded")

// Surface is the single shared handle to "where the video currently is":
// time position, play/pause state and mute flag. During an export the
// export pipeline is its sole writer; the rest of the time the browser
// drives it.
type Surface interface {
	CurrentTime() float64
	Duration() float64
	Seek(seconds float64)
	Play() error
	Pause()
	Playing() bool
	Muted() bool
	SetMuted(muted bool)

	// OnTimeUpdate attaches an observer invoked as the playhead advances
	// while playing. The returned func detaches it; observers must be
	// detached before a new one is attached for the same purpose.
	OnTimeUpdate(fn func(seconds float64)) (detach func())

	// OnEnded attaches an observer for the natural end of media.
	OnEnded(fn func()) (detach func())
}

// Frame is one captured video sample from a surface's live feed.
type Frame struct {
	Time float64 // playhead position the frame was rendered at
	Data []byte
	Key  bool
}

// FrameCapturer is implemented by surfaces that can expose a live feed of
// their rendered output. Surfaces without it cannot be recorded.
type FrameCapturer interface {
	// CaptureFrames starts a live feed at the given frame rate. The feed
	// ends when stop is called; the channel is closed afterwards.
	CaptureFrames(fps int) (frames <-chan Frame, stop func(), err error)
}
