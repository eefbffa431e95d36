// Package studio holds the interactive editor session: one loaded video,
// its detected events, the chat thread, and the generated commentary. The
// whole session lives in memory; restarting the agent starts fresh.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/courtside/courtside-agent/internal/audio"
	"github.com/courtside/courtside-agent/internal/detect"
	"github.com/courtside/courtside-agent/internal/exporter"
	"github.com/courtside/courtside-agent/internal/highlight"
	"github.com/courtside/courtside-agent/internal/llm"
	"github.com/courtside/courtside-agent/internal/media"
	"github.com/courtside/courtside-agent/internal/playback"
	"github.com/courtside/courtside-agent/internal/store"
	"github.com/courtside/courtside-agent/internal/tts"
)

var (
	ErrNoVideo  = errors.New("no video loaded")
	ErrNoEvents = errors.New("no events detected yet")
	ErrBusy     = errors.New("another analysis is still running")
)

type ChatMessage struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Status is the session snapshot the UI polls.
type Status struct {
	VideoLoaded   bool    `json:"video_loaded"`
	Filename      string  `json:"filename,omitempty"`
	DurationSec   float64 `json:"duration_sec,omitempty"`
	EventCount    int     `json:"event_count"`
	HasCommentary bool    `json:"has_commentary"`
	Processing    bool    `json:"processing"`
	Exporting     bool    `json:"exporting"`
	LastError     string  `json:"last_error,omitempty"`
}

// Options tune how the session builds its playback surface.
type Options struct {
	MediaDir  string
	Tick      time.Duration
	TimeScale float64
}

type Service struct {
	logger   *slog.Logger
	opts     Options
	prober   media.Prober
	detector detect.Client
	model    llm.Client
	speech   tts.Synthesizer
	exports  *exporter.Controller

	mu         sync.Mutex
	videoPath  string
	videoName  string
	videoMime  string
	videoBytes []byte
	duration   float64
	surface    playback.Surface
	events     []highlight.Event
	commentary *audio.Buffer
	messages   []ChatMessage
	processing bool
	lastError  string
}

func NewService(prober media.Prober, detector detect.Client, model llm.Client, speech tts.Synthesizer, exports *exporter.Controller, opts Options, logger *slog.Logger) *Service {
	if opts.Tick <= 0 {
		opts.Tick = 40 * time.Millisecond
	}
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}
	return &Service{
		logger:   logger,
		opts:     opts,
		prober:   prober,
		detector: detector,
		model:    model,
		speech:   speech,
		exports:  exports,
	}
}

// LoadVideo saves the uploaded clip, probes its duration, and resets the
// session around it. Loading a new video discards previous events, chat,
// and commentary.
func (s *Service) LoadVideo(ctx context.Context, filename, mimeType string, data []byte) (Status, error) {
	if len(data) == 0 {
		return Status{}, errors.New("empty upload")
	}

	name := exporter.SanitizeName(filepath.Base(filename), 120)
	if name == "" {
		name = "upload.mp4"
	}

	if err := os.MkdirAll(s.opts.MediaDir, 0o755); err != nil {
		return Status{}, fmt.Errorf("create media dir: %w", err)
	}
	path := filepath.Join(s.opts.MediaDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Status{}, fmt.Errorf("save video: %w", err)
	}

	info, err := s.prober.Probe(ctx, path)
	if err != nil {
		return Status{}, fmt.Errorf("probe video: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoPath = path
	s.videoName = name
	s.videoMime = mimeType
	s.videoBytes = data
	s.duration = info.DurationSec
	s.surface = playback.NewSimSurface(info.DurationSec, s.opts.Tick, s.opts.TimeScale)
	s.events = nil
	s.commentary = nil
	s.messages = nil
	s.processing = false
	s.lastError = ""

	s.logger.Info("video loaded",
		"filename", name,
		"duration_sec", info.DurationSec,
		"size_bytes", info.SizeBytes,
	)
	return s.statusLocked(), nil
}

// Analyze runs detection over the loaded clip and replaces the event list
// wholesale. A detection failure leaves the previous events untouched and
// surfaces the error into the chat thread.
func (s *Service) Analyze(ctx context.Context) ([]highlight.Event, error) {
	s.mu.Lock()
	if s.surface == nil {
		s.mu.Unlock()
		return nil, ErrNoVideo
	}
	if s.processing {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.processing = true
	video, mime, duration := s.videoBytes, s.videoMime, s.duration
	s.mu.Unlock()

	detected, err := s.detector.Detect(ctx, video, mime)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false

	if err != nil {
		s.logger.Error("analysis failed", "error", err)
		s.appendMessageLocked("assistant", "Analysis failed: "+err.Error()+". The previous events are unchanged; try again.")
		s.lastError = err.Error()
		return nil, fmt.Errorf("analyze video: %w", err)
	}

	s.lastError = ""
	s.events = highlight.Intake(detected, duration)
	s.commentary = nil
	s.logger.Info("analysis completed", "events", len(s.events))
	return append([]highlight.Event(nil), s.events...), nil
}

// Chat relays a user message to the model along with the running thread.
func (s *Service) Chat(ctx context.Context, text string) (ChatMessage, error) {
	s.mu.Lock()
	if s.surface == nil {
		s.mu.Unlock()
		return ChatMessage{}, ErrNoVideo
	}
	s.appendMessageLocked("user", text)

	history := make([]llm.Message, 0, len(s.messages)+1)
	if len(s.events) > 0 {
		history = append(history, llm.Message{
			Role:    "system",
			Content: "Detected plays in the loaded clip:\n" + llm.EventsDigest(s.events),
		})
	}
	for _, m := range s.messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	s.mu.Unlock()

	reply, err := s.model.Chat(ctx, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Error("chat failed", "error", err)
		s.appendMessageLocked("assistant", "I couldn't reach the model: "+err.Error())
		s.lastError = err.Error()
		return ChatMessage{}, fmt.Errorf("chat: %w", err)
	}

	s.appendMessageLocked("assistant", reply)
	return s.messages[len(s.messages)-1], nil
}

// GenerateCommentary summarizes the events into a script, synthesizes it,
// and decodes the audio into the session's commentary buffer.
func (s *Service) GenerateCommentary(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.surface == nil {
		s.mu.Unlock()
		return "", ErrNoVideo
	}
	if len(s.events) == 0 {
		s.mu.Unlock()
		return "", ErrNoEvents
	}
	if s.processing {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.processing = true
	events := append([]highlight.Event(nil), s.events...)
	s.mu.Unlock()

	script, buf, err := s.produceCommentary(ctx, events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false

	if err != nil {
		s.logger.Error("commentary generation failed", "error", err)
		s.appendMessageLocked("assistant", "Commentary generation failed: "+err.Error())
		s.lastError = err.Error()
		return "", err
	}
	s.lastError = ""
	if buf == nil {
		s.appendMessageLocked("assistant", "The speech service returned no audio for this script. Nothing was saved; try regenerating.")
		return script, nil
	}

	s.commentary = buf
	s.appendMessageLocked("assistant", "Commentary is ready: "+script)
	s.logger.Info("commentary generated",
		"script_chars", len(script),
		"audio_sec", buf.Duration(),
	)
	return script, nil
}

func (s *Service) produceCommentary(ctx context.Context, events []highlight.Event) (string, *audio.Buffer, error) {
	script, err := s.model.Summarize(ctx, events)
	if err != nil {
		return "", nil, fmt.Errorf("summarize events: %w", err)
	}

	res, err := s.speech.Synthesize(ctx, script)
	if err != nil {
		return "", nil, fmt.Errorf("synthesize commentary: %w", err)
	}
	if res.Empty {
		return script, nil, nil
	}

	buf, err := audio.DecodePCM16(res.PCM, res.SampleRate, audio.DefaultChannels)
	if err != nil {
		return "", nil, fmt.Errorf("decode commentary audio: %w", err)
	}
	return script, buf, nil
}

// Export hands the session's surface, events, and commentary to the
// export controller.
func (s *Service) Export(ctx context.Context) (*store.ExportRecord, error) {
	s.mu.Lock()
	req := exporter.Request{
		Surface:    s.surface,
		Duration:   s.duration,
		Segments:   append([]highlight.Event(nil), s.events...),
		Commentary: s.commentary,
	}
	s.mu.Unlock()

	return s.exports.Export(ctx, req)
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Service) Events() []highlight.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]highlight.Event(nil), s.events...)
}

func (s *Service) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.messages...)
}

// Video returns the loaded clip's path and mime type for range playback.
func (s *Service) Video() (path, mimeType string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoPath, s.videoMime, s.videoPath != ""
}

func (s *Service) statusLocked() Status {
	return Status{
		VideoLoaded:   s.surface != nil,
		Filename:      s.videoName,
		DurationSec:   s.duration,
		EventCount:    len(s.events),
		HasCommentary: s.commentary != nil,
		Processing:    s.processing,
		Exporting:     s.exports.Exporting(),
		LastError:     s.lastError,
	}
}

func (s *Service) appendMessageLocked(role, content string) {
	s.messages = append(s.messages, ChatMessage{Role: role, Content: content, At: time.Now()})
}
