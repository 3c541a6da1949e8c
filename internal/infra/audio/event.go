// Package audio provides the audio engine that decodes and plays local files.
package audio

import "time"

// EventType represents an audio engine event type.
type EventType int

const (
	EventProgress   EventType = iota // Periodic position report
	EventTrackEnded                  // Loaded track played to the end
	EventLoadError                   // Loaded track could not be decoded
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventProgress:
		return "progress"
	case EventTrackEnded:
		return "track_ended"
	case EventLoadError:
		return "load_error"
	default:
		return "unknown"
	}
}

// Event is emitted by the engine for the load identified by Generation.
type Event struct {
	Type       EventType
	Generation uint64
	Position   time.Duration
	Duration   time.Duration
	Playing    bool
	Err        error
}
