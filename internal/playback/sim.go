package playback

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// SimSurface is a tick-driven playhead over the loaded clip. It stands in
// for a rendering video element: time advances on a wall-clock ticker
// while playing (optionally scaled), observers fire on every advance, and
// a live frame feed can be captured from it.
type SimSurface struct {
	mu       sync.Mutex
	cur      float64
	duration float64
	playing  bool
	muted    bool
	gen      int

	tick  time.Duration
	scale float64

	nextObs  int
	timeObs  map[int]func(float64)
	endedObs map[int]func()
}

// NewSimSurface builds a surface over a clip of the given duration in
// seconds. tick is the playhead advance interval; scale is playhead
// seconds per wall-clock second (1.0 mirrors live playback).
func NewSimSurface(duration float64, tick time.Duration, scale float64) *SimSurface {
	if tick <= 0 {
		tick = 40 * time.Millisecond
	}
	if scale <= 0 {
		scale = 1.0
	}
	return &SimSurface{
		duration: duration,
		tick:     tick,
		scale:    scale,
		timeObs:  make(map[int]func(float64)),
		endedObs: make(map[int]func()),
	}
}

func (s *SimSurface) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *SimSurface) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *SimSurface) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if s.duration > 0 && seconds > s.duration {
		seconds = s.duration
	}
	s.cur = seconds
}

func (s *SimSurface) Play() error {
	s.mu.Lock()
	if s.duration <= 0 {
		s.mu.Unlock()
		return ErrNoMedia
	}
	if s.playing {
		s.mu.Unlock()
		return nil
	}
	s.playing = true
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go s.run(gen)
	return nil
}

func (s *SimSurface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.gen++
}

func (s *SimSurface) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *SimSurface) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *SimSurface) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

func (s *SimSurface) OnTimeUpdate(fn func(seconds float64)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.timeObs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.timeObs, id)
	}
}

func (s *SimSurface) OnEnded(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.endedObs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.endedObs, id)
	}
}

// run advances the playhead until paused, superseded or out of media.
// Observers are called without the lock held.
func (s *SimSurface) run(gen int) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		if !s.playing || s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.cur += s.tick.Seconds() * s.scale
		ended := false
		if s.cur >= s.duration {
			s.cur = s.duration
			s.playing = false
			s.gen++
			ended = true
		}
		cur := s.cur
		timeObs := make([]func(float64), 0, len(s.timeObs))
		for _, fn := range s.timeObs {
			timeObs = append(timeObs, fn)
		}
		var endObs []func()
		if ended {
			endObs = make([]func(), 0, len(s.endedObs))
			for _, fn := range s.endedObs {
				endObs = append(endObs, fn)
			}
		}
		s.mu.Unlock()

		for _, fn := range timeObs {
			fn(cur)
		}
		if ended {
			for _, fn := range endObs {
				fn()
			}
			return
		}
	}
}

// CaptureFrames implements FrameCapturer. Frames carry a deterministic
// payload stamped with the playhead position they were rendered at.
func (s *SimSurface) CaptureFrames(fps int) (<-chan Frame, func(), error) {
	if fps <= 0 {
		fps = 15
	}
	frames := make(chan Frame, fps)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
	}

	go func() {
		defer close(frames)
		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()
		n := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				f := Frame{Time: s.CurrentTime(), Key: n%int(fps) == 0}
				f.Data = renderFrame(f.Time, n)
				n++
				select {
				case frames <- f:
				case <-done:
					return
				}
			}
		}
	}()

	return frames, stop, nil
}

func renderFrame(t float64, n int) []byte {
	data := make([]byte, 16)
	binary.BigEndian.PutUint64(data[0:], math.Float64bits(t))
	binary.BigEndian.PutUint64(data[8:], uint64(n))
	return data
}
