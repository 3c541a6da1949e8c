package store

import (
	"context"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/osa030/19deck/internal/domain/playmode"
	"github.com/osa030/19deck/internal/domain/track"
)

// Memory keeps the queue in process memory. Nothing survives a restart.
type Memory struct {
	mu      sync.RWMutex
	items   []string
	tracks  map[string]track.Track
	current int
	shuffle bool
	loop    playmode.LoopMode
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		tracks:  make(map[string]track.Track),
		current: -1,
	}
}

// Get returns the stored queue.
func (m *Memory) Get(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := lo.Map(m.items, func(id string, _ int) track.Track {
		if t, ok := m.tracks[id]; ok {
			return t
		}
		return track.Track{ID: id}
	})
	return Snapshot{
		Items:        items,
		CurrentIndex: m.current,
		Shuffle:      m.shuffle,
		Loop:         m.loop,
	}, nil
}

// Add inserts ids at position, or appends when position is nil.
func (m *Memory) Add(_ context.Context, trackIDs []string, position *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	at := insertPosition(position, len(m.items))
	m.items = slices.Insert(m.items, at, trackIDs...)
	return nil
}

// Remove deletes the id at position.
func (m *Memory) Remove(_ context.Context, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if position < 0 || position >= len(m.items) {
		return nil
	}
	m.items = slices.Delete(m.items, position, position+1)
	return nil
}

// Move relocates the id at from so that it ends up at to.
func (m *Memory) Move(_ context.Context, from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.items)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return nil
	}
	id := m.items[from]
	m.items = slices.Delete(m.items, from, from+1)
	m.items = slices.Insert(m.items, to, id)
	return nil
}

// Clear removes every id and resets the active index.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = nil
	m.current = -1
	return nil
}

// SetCurrentIndex stores the active index.
func (m *Memory) SetCurrentIndex(_ context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = index
	return nil
}

// SetShuffle stores the shuffle flag.
func (m *Memory) SetShuffle(_ context.Context, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shuffle = on
	return nil
}

// SetLoop stores the loop mode.
func (m *Memory) SetLoop(_ context.Context, mode playmode.LoopMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loop = mode
	return nil
}

// UpsertTracks stores track records by id.
func (m *Memory) UpsertTracks(_ context.Context, tracks []track.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tracks {
		m.tracks[t.ID] = t
	}
	return nil
}

// GetTrack returns a stored track record.
func (m *Memory) GetTrack(_ context.Context, id string) (track.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tracks[id]
	if !ok {
		return track.Track{}, errors.Wrapf(ErrTrackNotFound, "id=%s", id)
	}
	return t, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
