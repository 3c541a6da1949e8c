// Package playback provides the transition controller that owns the play queue
// and drives the audio engine.
package playback

// State represents the transport state.
type State int

const (
	StateStopped State = iota // Nothing loaded, or playback ran off the end
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// RepeatPhase tracks the two-step repeat-one sequence.
type RepeatPhase int

const (
	RepeatIdle        RepeatPhase = iota // No replay has been issued yet
	RepeatOnePending                     // The current track was replayed once
)

// String returns the string representation of the phase.
func (p RepeatPhase) String() string {
	switch p {
	case RepeatIdle:
		return "idle"
	case RepeatOnePending:
		return "repeat_one_pending"
	default:
		return "unknown"
	}
}
