// Package store provides queue persistence backends.
//
// The persisted queue is row oriented: one row per entry holding a track id
// and its position, plus a single state row with the active index and modes.
package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/playmode"
	"github.com/osa030/19deck/internal/domain/track"
	"github.com/osa030/19deck/internal/infra/config"
)

// ErrTrackNotFound is returned when a track id has no stored record.
var ErrTrackNotFound = errors.New("track not found")

// Snapshot is the persisted queue. Items whose track record is missing carry
// only their id.
type Snapshot struct {
	Items        []track.Track
	CurrentIndex int
	Shuffle      bool
	Loop         playmode.LoopMode
}

// Store is a queue persistence backend.
type Store interface {
	Get(ctx context.Context) (Snapshot, error)
	Add(ctx context.Context, trackIDs []string, position *int) error
	Remove(ctx context.Context, position int) error
	Move(ctx context.Context, from, to int) error
	Clear(ctx context.Context) error
	SetCurrentIndex(ctx context.Context, index int) error
	SetShuffle(ctx context.Context, on bool) error
	SetLoop(ctx context.Context, mode playmode.LoopMode) error

	UpsertTracks(ctx context.Context, tracks []track.Track) error
	GetTrack(ctx context.Context, id string) (track.Track, error)
	Close() error
}

// New creates the backend selected by cfg.Type. Settings are decoded into the
// backend's own settings struct.
func New(cfg config.PersistenceConfig) (Store, error) {
	zlog.Debug().Msgf("creating persistence backend: type=%s settings=%+v", cfg.Type, cfg.Settings)

	switch cfg.Type {
	case "sqlite":
		var settings SQLiteSettings
		if err := decodeSettings(cfg.Settings, &settings); err != nil {
			return nil, errors.Wrap(err, "sqlite settings")
		}
		return OpenSQLite(settings)

	case "memory":
		return NewMemory(), nil

	default:
		return nil, errors.Newf("unsupported persistence type: %s", cfg.Type)
	}
}

func decodeSettings(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

// insertPosition clamps an optional insert position to [0, n].
func insertPosition(position *int, n int) int {
	if position == nil || *position > n {
		return n
	}
	if *position < 0 {
		return 0
	}
	return *position
}
