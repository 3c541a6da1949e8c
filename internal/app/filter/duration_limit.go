package filter

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/track"
)

// DurationLimitConfig represents the configuration for DurationLimitFilter.
// Zero means no limit on that side.
type DurationLimitConfig struct {
	MinSeconds float64 `yaml:"min_seconds" mapstructure:"min_seconds" default:"0" validate:"gte=0"`
	MaxSeconds float64 `yaml:"max_seconds" mapstructure:"max_seconds" default:"0" validate:"gte=0"`
}

// DurationLimitFilter checks if track duration is within allowed limits.
// Tracks whose duration is unknown are always accepted.
type DurationLimitFilter struct {
	config   *DurationLimitConfig
	min, max time.Duration
}

// NewDurationLimitFilter creates a new duration limit filter.
func NewDurationLimitFilter() *DurationLimitFilter {
	return &DurationLimitFilter{}
}

func (f *DurationLimitFilter) Name() string {
	return "duration_limit_filter"
}

func (f *DurationLimitFilter) Description() string {
	return "Rejects tracks shorter or longer than the configured limits"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{"duration_limit_exceeded"}
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	if config.MaxSeconds > 0 && config.MinSeconds > config.MaxSeconds {
		return errors.New("min_seconds cannot be greater than max_seconds")
	}

	f.config = &config
	f.min = seconds(config.MinSeconds)
	f.max = seconds(config.MaxSeconds)
	zlog.Info().Msgf("duration limit filter config: min=%s max=%s", f.min, f.max)
	return nil
}

func (f *DurationLimitFilter) Check(ctx context.Context, t track.Track, queued, pending []track.Track) Result {
	// Unknown durations cannot be judged
	if f.config == nil || t.Duration <= 0 {
		return Accept()
	}
	if t.Duration < f.min || (f.max > 0 && t.Duration > f.max) {
		return Reject("duration_limit_exceeded")
	}
	return Accept()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func init() {
	Register("duration_limit_filter", func() Filter {
		return NewDurationLimitFilter()
	})
}
