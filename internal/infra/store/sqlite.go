package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/osa030/19deck/internal/domain/playmode"
	"github.com/osa030/19deck/internal/domain/track"
)

// SQLiteSettings configures the SQLite backend.
type SQLiteSettings struct {
	Path          string `mapstructure:"path" default:"deck.db" validate:"required"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms" default:"5000" validate:"gte=0"`
}

type trackRecord struct {
	ID         string `gorm:"primaryKey"`
	Title      string
	Artist     string `gorm:"index"`
	Album      string
	FilePath   string `gorm:"index"`
	DurationMs int64
	UpdatedAt  time.Time
}

func (trackRecord) TableName() string { return "tracks" }

// queueRow is one queue entry. Position is not unique so that shifting a
// range never collides mid-update.
type queueRow struct {
	ID       uint   `gorm:"primaryKey"`
	Position int    `gorm:"index;not null"`
	TrackID  string `gorm:"index;not null"`
}

func (queueRow) TableName() string { return "queue_items" }

type queueState struct {
	ID           int `gorm:"primaryKey;autoIncrement:false"`
	CurrentIndex int `gorm:"not null;default:-1"`
	Shuffle      bool
	Loop         string `gorm:"size:8;not null;default:none"`
	UpdatedAt    time.Time
}

func (queueState) TableName() string { return "queue_state" }

const stateRowID = 1

// SQLite persists the queue with GORM on a pure-Go SQLite driver.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens or creates the database and migrates the schema.
func OpenSQLite(settings SQLiteSettings) (*SQLite, error) {
	if dir := filepath.Dir(settings.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", settings.Path, settings.BusyTimeoutMs)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(200 * time.Millisecond),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&trackRecord{}, &queueRow{}, &queueState{}); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "failed to migrate schema")
	}

	state := queueState{ID: stateRowID, CurrentIndex: -1, Loop: playmode.LoopNone.String()}
	if err := db.FirstOrCreate(&state, queueState{ID: stateRowID}).Error; err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "failed to initialize queue state")
	}

	zlog.Info().Msgf("sqlite store opened: path=%s", settings.Path)
	return &SQLite{db: db}, nil
}

// Get returns the persisted queue.
func (s *SQLite) Get(ctx context.Context) (Snapshot, error) {
	var rows []queueRow
	if err := s.db.WithContext(ctx).Order("position ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to load queue items")
	}

	ids := lo.Uniq(lo.Map(rows, func(r queueRow, _ int) string { return r.TrackID }))
	var records []trackRecord
	if len(ids) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
			return Snapshot{}, errors.Wrap(err, "failed to load tracks")
		}
	}
	byID := lo.KeyBy(records, func(r trackRecord) string { return r.ID })

	var state queueState
	if err := s.db.WithContext(ctx).First(&state, stateRowID).Error; err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to load queue state")
	}

	items := lo.Map(rows, func(r queueRow, _ int) track.Track {
		if rec, ok := byID[r.TrackID]; ok {
			return rec.toTrack()
		}
		return track.Track{ID: r.TrackID}
	})

	return Snapshot{
		Items:        items,
		CurrentIndex: state.CurrentIndex,
		Shuffle:      state.Shuffle,
		Loop:         playmode.Parse(state.Loop),
	}, nil
}

// Add inserts rows at position, or appends when position is nil.
func (s *SQLite) Add(ctx context.Context, trackIDs []string, position *int) error {
	if len(trackIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&queueRow{}).Count(&n).Error; err != nil {
			return errors.Wrap(err, "failed to count queue items")
		}
		at := insertPosition(position, int(n))

		if at < int(n) {
			if err := tx.Model(&queueRow{}).
				Where("position >= ?", at).
				Update("position", gorm.Expr("position + ?", len(trackIDs))).Error; err != nil {
				return errors.Wrap(err, "failed to shift queue items")
			}
		}

		rows := lo.Map(trackIDs, func(id string, i int) queueRow {
			return queueRow{Position: at + i, TrackID: id}
		})
		if err := tx.Create(&rows).Error; err != nil {
			return errors.Wrap(err, "failed to insert queue items")
		}
		return nil
	})
}

// Remove deletes the row at position and closes the gap.
func (s *SQLite) Remove(ctx context.Context, position int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("position = ?", position).Delete(&queueRow{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "failed to delete queue item")
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Model(&queueRow{}).
			Where("position > ?", position).
			Update("position", gorm.Expr("position - 1")).Error; err != nil {
			return errors.Wrap(err, "failed to shift queue items")
		}
		return nil
	})
}

// Move relocates the row at from so that it ends up at to.
func (s *SQLite) Move(ctx context.Context, from, to int) error {
	if from == to {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var moved queueRow
		err := tx.Where("position = ?", from).First(&moved).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to find queue item")
		}

		shift := tx.Model(&queueRow{})
		if from < to {
			err = shift.Where("position > ? AND position <= ?", from, to).
				Update("position", gorm.Expr("position - 1")).Error
		} else {
			err = shift.Where("position >= ? AND position < ?", to, from).
				Update("position", gorm.Expr("position + 1")).Error
		}
		if err != nil {
			return errors.Wrap(err, "failed to shift queue items")
		}

		if err := tx.Model(&moved).Update("position", to).Error; err != nil {
			return errors.Wrap(err, "failed to move queue item")
		}
		return nil
	})
}

// Clear deletes every row and resets the active index.
func (s *SQLite) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&queueRow{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear queue items")
		}
		return s.updateState(tx, "current_index", -1)
	})
}

// SetCurrentIndex stores the active index.
func (s *SQLite) SetCurrentIndex(ctx context.Context, index int) error {
	return s.updateState(s.db.WithContext(ctx), "current_index", index)
}

// SetShuffle stores the shuffle flag.
func (s *SQLite) SetShuffle(ctx context.Context, on bool) error {
	return s.updateState(s.db.WithContext(ctx), "shuffle", on)
}

// SetLoop stores the loop mode.
func (s *SQLite) SetLoop(ctx context.Context, mode playmode.LoopMode) error {
	return s.updateState(s.db.WithContext(ctx), "loop", mode.String())
}

func (s *SQLite) updateState(tx *gorm.DB, column string, value any) error {
	if err := tx.Model(&queueState{ID: stateRowID}).Update(column, value).Error; err != nil {
		return errors.Wrapf(err, "failed to update queue state %s", column)
	}
	return nil
}

// UpsertTracks stores library records, replacing existing ones by id.
func (s *SQLite) UpsertTracks(ctx context.Context, tracks []track.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	records := lo.Map(tracks, func(t track.Track, _ int) trackRecord { return newTrackRecord(t) })
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&records).Error; err != nil {
		return errors.Wrap(err, "failed to upsert tracks")
	}
	return nil
}

// GetTrack returns a stored track record.
func (s *SQLite) GetTrack(ctx context.Context, id string) (track.Track, error) {
	var rec trackRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return track.Track{}, errors.Wrapf(ErrTrackNotFound, "id=%s", id)
	}
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to load track")
	}
	return rec.toTrack(), nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}
	return sqlDB.Close()
}

func newTrackRecord(t track.Track) trackRecord {
	return trackRecord{
		ID:         t.ID,
		Title:      t.Title,
		Artist:     t.Artist,
		Album:      t.Album,
		FilePath:   t.FilePath,
		DurationMs: t.DurationMs(),
	}
}

func (r trackRecord) toTrack() track.Track {
	return track.Track{
		ID:       r.ID,
		Title:    r.Title,
		Artist:   r.Artist,
		Album:    r.Album,
		FilePath: r.FilePath,
		Duration: time.Duration(r.DurationMs) * time.Millisecond,
	}
}
