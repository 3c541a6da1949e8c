package playback

import (
	"time"

	"github.com/osa030/19deck/internal/domain/track"
)

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted    EventType = iota // A track was loaded and started
	EventPlaybackStopped                  // Playback stopped (end of queue, cleared, removed)
	EventStateChanged                     // Pause or resume
	EventPlaybackError                    // The audio engine failed on the current track
	EventQueueChanged                     // Queue contents or order changed
	EventModesChanged                     // Shuffle or loop mode changed
	EventProgress                         // Position update from the audio engine
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventPlaybackStopped:
		return "playback_stopped"
	case EventStateChanged:
		return "state_changed"
	case EventPlaybackError:
		return "playback_error"
	case EventQueueChanged:
		return "queue_changed"
	case EventModesChanged:
		return "modes_changed"
	case EventProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type     EventType
	Track    *track.Track // Current track (nil when nothing is active)
	Index    int
	State    State
	Position time.Duration
	Duration time.Duration
	Err      error
}
