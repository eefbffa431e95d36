// Package sequencer drives a playback surface through an ordered list of
// highlight segments, one at a time.
package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/courtside/courtside-agent/internal/highlight"
	"github.com/courtside/courtside-agent/internal/playback"
)

// Sequencer visits each segment in order exactly once and returns only
// after the last segment has fully played. It is the exclusive driver of
// the surface while running.
type Sequencer struct {
	logger  *slog.Logger
	surface playback.Surface
	scale   float64
	grace   time.Duration
}

// New builds a sequencer for one run. scale is the playback seconds the
// surface advances per wall-clock second; grace is the extra wall time a
// segment may take past its own span before it is declared stalled.
func New(surface playback.Surface, scale float64, grace time.Duration, logger *slog.Logger) *Sequencer {
	if scale <= 0 {
		scale = 1
	}
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &Sequencer{
		logger:  logger,
		surface: surface,
		scale:   scale,
		grace:   grace,
	}
}

// Run plays the segments in the order given. An empty list completes
// immediately without touching the surface. A resume failure or a stalled
// segment aborts the whole run with an error; the surface is left paused
// in every case once at least one segment started.
func (q *Sequencer) Run(ctx context.Context, segments []highlight.Event) error {
	if len(segments) == 0 {
		q.logger.Debug("sequencer: no segments, completing immediately")
		return nil
	}

	for i, seg := range segments {
		q.logger.Debug("sequencer: segment start",
			"index", i+1,
			"total", len(segments),
			"start", seg.StartTime,
			"end", seg.EndTime,
		)
		if err := q.playSegment(ctx, i, seg); err != nil {
			return err
		}
	}

	q.logger.Debug("sequencer: all segments played", "count", len(segments))
	return nil
}

func (q *Sequencer) playSegment(ctx context.Context, idx int, seg highlight.Event) error {
	q.surface.Seek(seg.StartTime)

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	// only this segment's observation is attached while it plays; both
	// ways a segment can end funnel into the same one-shot signal
	detachTime := q.surface.OnTimeUpdate(func(t float64) {
		if t >= seg.EndTime {
			finish()
		}
	})
	detachEnded := q.surface.OnEnded(finish)
	defer func() {
		detachTime()
		detachEnded()
		q.surface.Pause()
	}()

	if err := q.surface.Play(); err != nil {
		return fmt.Errorf("resume playback for segment %d: %w", idx+1, err)
	}

	span := seg.EndTime - seg.StartTime
	guard := time.Duration(span / q.scale * float64(time.Second))
	timer := time.NewTimer(guard + q.grace)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("segment %d stalled before reaching %.2fs", idx+1, seg.EndTime)
	case <-done:
		return nil
	}
}
