// Package highlight holds the detected-event model shared by detection,
// the timeline, and the export pipeline.
package highlight

import (
	"sort"
	"strings"
)

type EventType string

const (
	TypeDunk       EventType = "dunk"
	TypeThreePoint EventType = "3point"
	TypeSteal      EventType = "steal"
	TypeBlock      EventType = "block"
	TypeAssist     EventType = "assist"
	TypeHighlight  EventType = "highlight"
	TypeOther      EventType = "other"
)

// NormalizeType maps a model-reported label onto the known set, falling
// back to TypeOther for anything unrecognized.
func NormalizeType(s string) EventType {
	switch EventType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeDunk, TypeThreePoint, TypeSteal, TypeBlock, TypeAssist, TypeHighlight:
		return EventType(strings.ToLower(strings.TrimSpace(s)))
	case "three_pointer", "threepoint", "3pt":
		return TypeThreePoint
	default:
		return TypeOther
	}
}

// Event is one detected highlight: a time range on the loaded clip.
type Event struct {
	ID          int       `json:"id"`
	Type        EventType `json:"type"`
	StartTime   float64   `json:"start_time"`
	EndTime     float64   `json:"end_time"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"`
}

func (e Event) Duration() float64 {
	return e.EndTime - e.StartTime
}

// SortByStart orders events ascending by start time. The sort is stable so
// ties keep their original detection order.
func SortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime < events[j].StartTime
	})
}

// Intake sanitizes a freshly detected batch: sorts by start time, clamps
// end times to the clip duration, drops ranges that are empty after
// clamping, and assigns sequential identifiers. duration <= 0 means the
// clip length is unknown and no clamping happens.
func Intake(events []Event, duration float64) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.StartTime < 0 || e.EndTime <= e.StartTime {
			continue
		}
		if duration > 0 {
			if e.StartTime >= duration {
				continue
			}
			if e.EndTime > duration {
				e.EndTime = duration
			}
		}
		if e.Confidence < 0 {
			e.Confidence = 0
		}
		if e.Confidence > 1 {
			e.Confidence = 1
		}
		out = append(out, e)
	}

	SortByStart(out)

	for i := range out {
		out[i].ID = i + 1
	}
	return out
}
