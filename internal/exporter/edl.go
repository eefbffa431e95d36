package exporter

import (
	"fmt"
	"math"
	"strings"

	"github.com/courtside/courtside-agent/internal/highlight"
)

// GenerateEDL renders the highlight cut list as a CMX3600-style edit
// decision list, for users who want to rebuild the reel in an NLE instead
// of downloading the recorded artifact.
func GenerateEDL(events []highlight.Event, title, mediaName string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, 60))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffsetMs := 0
	for i, ev := range events {
		startMs := int(math.Round(ev.StartTime * 1000))
		endMs := int(math.Round(ev.EndTime * 1000))
		durationMs := endMs - startMs

		srcIn := msToTimecode(startMs, fps)
		srcOut := msToTimecode(endMs, fps)
		recIn := msToTimecode(recordOffsetMs, fps)
		recOut := msToTimecode(recordOffsetMs+durationMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clipName(ev)),
			fmt.Sprintf("* MEDIA PATH:  %s", mediaName),
		)

		recordOffsetMs += durationMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func clipName(ev highlight.Event) string {
	name := strings.ToUpper(string(ev.Type))
	if ev.Description != "" {
		name += " - " + SanitizeName(ev.Description, 40)
	}
	return name
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
