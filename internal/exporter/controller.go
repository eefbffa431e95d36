// Package exporter orchestrates a highlight export: it drives the playback
// surface through the segment list while a capture session records the
// combined stream, then assembles the artifact and files the export row.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/courtside/courtside-agent/internal/audio"
	"github.com/courtside/courtside-agent/internal/capture"
	"github.com/courtside/courtside-agent/internal/highlight"
	"github.com/courtside/courtside-agent/internal/logging"
	"github.com/courtside/courtside-agent/internal/playback"
	"github.com/courtside/courtside-agent/internal/sequencer"
	"github.com/courtside/courtside-agent/internal/store"
)

var (
	// ErrPrecondition wraps the user-facing reason an export could not start.
	ErrPrecondition = errors.New("export precondition not met")

	ErrExportInFlight = errors.New("an export is already in progress")
)

const filenamePrefix = "highlights-"

// Options tune one controller for the lifetime of the agent.
type Options struct {
	ExportsDir   string
	CaptureFPS   int
	TimeScale    float64
	SegmentGrace time.Duration
}

// Request carries everything one export needs. The surface and commentary
// come from the live editor session; nothing here is read from disk.
type Request struct {
	Surface    playback.Surface
	Duration   float64
	Segments   []highlight.Event
	Commentary *audio.Buffer
}

// Controller serializes exports: at most one runs at a time, and the
// surface's (time, muted) state is restored on every exit path.
type Controller struct {
	logger    *slog.Logger
	repo      store.Repository
	opts      Options
	exporting atomic.Bool
}

func NewController(repo store.Repository, opts Options, logger *slog.Logger) *Controller {
	if opts.CaptureFPS <= 0 {
		opts.CaptureFPS = 15
	}
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}
	if opts.SegmentGrace <= 0 {
		opts.SegmentGrace = 10 * time.Second
	}
	return &Controller{logger: logger, repo: repo, opts: opts}
}

// Exporting reports whether an export is currently in flight.
func (c *Controller) Exporting() bool {
	return c.exporting.Load()
}

// Export runs the whole pipeline synchronously and returns the completed
// export record. Precondition failures reject immediately with no state
// change; any later failure still restores the surface and is recorded as
// a failed export row.
func (c *Controller) Export(ctx context.Context, req Request) (*store.ExportRecord, error) {
	if req.Surface == nil || req.Duration <= 0 {
		return nil, fmt.Errorf("%w: load a video first", ErrPrecondition)
	}
	if len(req.Segments) == 0 {
		return nil, fmt.Errorf("%w: no highlight events to export", ErrPrecondition)
	}
	if req.Commentary == nil || len(req.Commentary.Samples) == 0 {
		return nil, fmt.Errorf("%w: generate commentary first", ErrPrecondition)
	}

	if !c.exporting.CompareAndSwap(false, true) {
		return nil, ErrExportInFlight
	}
	defer c.exporting.Store(false)

	// snapshot, restored unconditionally once the run ends
	snapTime := req.Surface.CurrentTime()
	snapMuted := req.Surface.Muted()
	defer func() {
		req.Surface.Seek(snapTime)
		req.Surface.SetMuted(snapMuted)
		req.Surface.Pause()
	}()

	session, err := capture.NewSession(req.Surface, req.Commentary, c.opts.CaptureFPS, c.logger)
	if err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}

	now := time.Now()
	rec := &store.ExportRecord{
		ID:           store.NewID(),
		Filename:     filenamePrefix + now.Format("20060102-150405") + capture.FileExt,
		ContentType:  capture.ContentType,
		DurationSec:  totalSpan(req.Segments),
		SegmentCount: len(req.Segments),
		Status:       store.ExportStatusRunning,
		CreatedAt:    now,
	}
	rec.Path = filepath.Join(c.opts.ExportsDir, rec.Filename)

	logger := logging.WithExportID(c.logger, rec.ID)
	logger.Info("export started",
		"segments", rec.SegmentCount,
		"duration_sec", rec.DurationSec,
	)

	if err := c.repo.CreateExport(ctx, rec); err != nil {
		return nil, fmt.Errorf("create export record: %w", err)
	}

	// the surface's own audio stays out of the artifact; the commentary
	// is the sole audio source
	req.Surface.SetMuted(true)

	if err := session.Start(ctx); err != nil {
		return nil, c.fail(ctx, logger, rec, fmt.Errorf("start capture: %w", err))
	}
	session.PlayCommentary()

	seq := sequencer.New(req.Surface, c.opts.TimeScale, c.opts.SegmentGrace, logger)
	runErr := seq.Run(ctx, req.Segments)

	finalized := false
	session.Stop(func() { finalized = true })

	if runErr != nil {
		return nil, c.fail(ctx, logger, rec, runErr)
	}
	if !finalized {
		return nil, c.fail(ctx, logger, rec, errors.New("recorder did not finalize"))
	}

	data := session.Recorder().Bytes()
	if err := os.MkdirAll(c.opts.ExportsDir, 0o755); err != nil {
		return nil, c.fail(ctx, logger, rec, fmt.Errorf("create exports dir: %w", err))
	}
	if err := os.WriteFile(rec.Path, data, 0o644); err != nil {
		return nil, c.fail(ctx, logger, rec, fmt.Errorf("write artifact: %w", err))
	}

	rec.SizeBytes = int64(len(data))
	rec.Status = store.ExportStatusCompleted
	if err := c.repo.CompleteExport(ctx, rec.ID, rec.SizeBytes); err != nil {
		return nil, fmt.Errorf("complete export record: %w", err)
	}

	logger.Info("export completed",
		"filename", rec.Filename,
		"size_bytes", rec.SizeBytes,
	)
	return rec, nil
}

func (c *Controller) fail(ctx context.Context, logger *slog.Logger, rec *store.ExportRecord, err error) error {
	logger.Error("export failed", "error", err)
	if dbErr := c.repo.FailExport(ctx, rec.ID, err.Error()); dbErr != nil {
		logger.Error("failed to record export failure", "error", dbErr)
	}
	return fmt.Errorf("export failed: %w", err)
}

func totalSpan(segments []highlight.Event) float64 {
	var total float64
	for _, s := range segments {
		total += s.EndTime - s.StartTime
	}
	return total
}
