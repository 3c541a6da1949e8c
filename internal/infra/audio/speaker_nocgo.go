//go:build !((linux && cgo) || windows || darwin)

package audio

import zlog "github.com/rs/zerolog/log"

// Available indicates whether sound output is supported in this build.
// Sound requires cgo for the native audio libraries.
const Available = false

// New returns a silent clock engine; this build has no sound output.
func New(cfg Config) (Player, error) {
	cfg = cfg.withDefaults()
	if !cfg.Silent {
		zlog.Warn().Msg("built without cgo: audio output disabled, using silent clock")
	}
	return NewClock(cfg.ProgressInterval), nil
}
