// Package media probes uploaded video files for playback metadata.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Info is what the editor session needs to know about a loaded video.
type Info struct {
	DurationSec float64
	SizeBytes   int64
}

type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// FFProbe shells out to ffprobe for the container duration.
type FFProbe struct {
	bin string
}

func NewFFProbe(bin string) *FFProbe {
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFProbe{bin: bin}
}

func (p *FFProbe) Probe(ctx context.Context, path string) (Info, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat video: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}

	sec, err := parseDuration(string(b))
	if err != nil {
		return Info{}, err
	}
	return Info{DurationSec: sec, SizeBytes: info.Size()}, nil
}

func parseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if sec <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", s)
	}
	return sec, nil
}

// estimateBytesPerSec approximates a consumer camera recording so uploads
// still get a usable timeline when ffprobe is not installed.
const estimateBytesPerSec = 1 << 20

// SizeEstimateProber derives a rough duration from the file size alone.
type SizeEstimateProber struct{}

func (SizeEstimateProber) Probe(_ context.Context, path string) (Info, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat video: %w", err)
	}
	sec := float64(info.Size()) / float64(estimateBytesPerSec)
	if sec < 1 {
		sec = 1
	}
	return Info{DurationSec: sec, SizeBytes: info.Size()}, nil
}

// NewProber prefers ffprobe when present on PATH and falls back to the
// size estimate otherwise.
func NewProber() Prober {
	if _, err := exec.LookPath("ffprobe"); err == nil {
		return NewFFProbe("")
	}
	return SizeEstimateProber{}
}
