// Package playmode provides the loop mode shared by the queue, the controller
// and the persistence backends.
package playmode

// LoopMode represents end-of-queue and end-of-track repeat behavior.
type LoopMode int

const (
	LoopNone LoopMode = iota // Stop at the end of the queue
	LoopAll                  // Wrap to the start of the queue
	LoopOne                  // Play the current track one more time
)

// String returns the string representation of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopAll:
		return "all"
	case LoopOne:
		return "one"
	default:
		return "none"
	}
}

// Next returns the mode that follows m in the none -> all -> one cycle.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopNone:
		return LoopAll
	case LoopAll:
		return LoopOne
	default:
		return LoopNone
	}
}

// Parse converts a string to a LoopMode. Unknown values map to LoopNone.
func Parse(s string) LoopMode {
	switch s {
	case "all":
		return LoopAll
	case "one":
		return LoopOne
	default:
		return LoopNone
	}
}

// Lookup converts a string to a LoopMode and reports whether it was known.
func Lookup(s string) (LoopMode, bool) {
	switch s {
	case "none":
		return LoopNone, true
	case "all", "one":
		return Parse(s), true
	default:
		return LoopNone, false
	}
}
