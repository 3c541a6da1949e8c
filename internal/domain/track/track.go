// Package track provides the Track reference domain entity.
package track

import "time"

// Track represents a playable item supplied by the library.
// The queue holds copies of this value and never mutates them.
type Track struct {
	ID       string        // Stable identifier
	Title    string        // Track title (optional)
	Artist   string        // Artist name (optional)
	Album    string        // Album name (optional)
	FilePath string        // Location of the audio file
	Duration time.Duration // Track duration (zero if unknown)
}

// DurationMs returns the duration in milliseconds.
func (t Track) DurationMs() int64 {
	return t.Duration.Milliseconds()
}

// DisplayName returns a human-readable name for the track.
func (t Track) DisplayName() string {
	switch {
	case t.Title != "" && t.Artist != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return t.FilePath
	}
}

// IDs returns the ids of the given tracks in order.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
