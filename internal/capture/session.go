package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/courtside/courtside-agent/internal/audio"
	"github.com/courtside/courtside-agent/internal/playback"
)

var ErrCaptureUnsupported = errors.New("capture: surface does not support live capture")

const mixPullInterval = 50 * time.Millisecond

// Session is one capture & mix session: the surface's video feed and the
// mixer's audio output recorded as a single combined stream. Built at
// export start, torn down at export end; never reused.
type Session struct {
	logger *slog.Logger
	source playback.FrameCapturer
	mixer  *Mixer
	rec    *Recorder
	fps    int

	mu         sync.Mutex
	started    bool
	startedAt  time.Time
	stopFrames func()
	cancel     context.CancelFunc
	gctx       context.Context
	group      *errgroup.Group

	commentaryOnce sync.Once
}

// NewSession builds the capture pipeline around a surface. The commentary
// buffer is connected into the mixing destination here; it starts playing
// only when PlayCommentary is called. Surfaces that cannot expose a live
// feed make recording impossible, reported as ErrCaptureUnsupported.
func NewSession(surface playback.Surface, commentary *audio.Buffer, fps int, logger *slog.Logger) (*Session, error) {
	source, ok := surface.(playback.FrameCapturer)
	if !ok {
		return nil, ErrCaptureUnsupported
	}
	if fps <= 0 {
		fps = 15
	}

	sampleRate := audio.DefaultSampleRate
	channels := audio.DefaultChannels
	if commentary != nil {
		sampleRate = commentary.SampleRate
		channels = commentary.Channels
	}

	mixer := NewMixer(sampleRate, channels)
	mixer.Connect(commentary)

	return &Session{
		logger: logger,
		source: source,
		mixer:  mixer,
		rec:    NewRecorder(fps, sampleRate),
		fps:    fps,
	}, nil
}

func (s *Session) Recorder() *Recorder { return s.rec }

// Start begins recording: the video feed opens and the recorder accepts
// samples. Idempotent.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	frames, stopFrames, err := s.source.CaptureFrames(s.fps)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnsupported, err)
	}

	gctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(gctx)

	s.started = true
	s.startedAt = time.Now()
	s.stopFrames = stopFrames
	s.cancel = cancel
	s.gctx = gctx
	s.group = group

	s.rec.Start()

	group.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				stopFrames()
				for range frames {
				}
				return nil
			case f, ok := <-frames:
				if !ok {
					return nil
				}
				s.rec.WriteVideo(VideoSample{
					Data: f.Data,
					PTS:  s.elapsedMs(),
					Key:  f.Key,
				})
			}
		}
	})

	return nil
}

// PlayCommentary starts the connected commentary source playing into the
// recording, from time zero, once. A second call has no effect, and a
// call before Start has none either.
func (s *Session) PlayCommentary() {
	s.commentaryOnce.Do(func() {
		s.mu.Lock()
		group := s.group
		gctx := s.gctx
		s.mu.Unlock()
		if group == nil {
			return
		}

		group.Go(func() error {
			ticker := time.NewTicker(mixPullInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					data, live := s.mixer.Pull(mixPullInterval.Seconds())
					if len(data) > 0 {
						s.rec.WriteAudio(AudioSample{Data: data, PTS: s.elapsedMs()})
					}
					if !live {
						return nil
					}
				}
			}
		})
	})
}

// Stop tears the session down: feeds close, pumps drain, the recorder
// finalizes and onFinalized runs. Safe to call on a session that never
// started, and safe to call twice.
func (s *Session) Stop(onFinalized func()) {
	s.mu.Lock()
	cancel := s.cancel
	stopFrames := s.stopFrames
	group := s.group
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopFrames != nil {
		stopFrames()
	}
	if group != nil {
		group.Wait()
	}
	s.rec.Stop(onFinalized)
}

func (s *Session) elapsedMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt).Milliseconds()
}
