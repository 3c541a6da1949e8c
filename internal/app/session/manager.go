// Package session wires the transition controller to persistence, the
// library and notification subscribers for the lifetime of the daemon.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/app/filter"
	"github.com/osa030/19deck/internal/app/notification"
	"github.com/osa030/19deck/internal/app/playback"
	"github.com/osa030/19deck/internal/app/queuesync"
	"github.com/osa030/19deck/internal/domain/track"
	"github.com/osa030/19deck/internal/infra/config"
	"github.com/osa030/19deck/internal/infra/library"
	"github.com/osa030/19deck/internal/infra/store"
)

var (
	ErrNoTracks      = errors.New("no playable tracks")
	ErrSessionClosed = errors.New("session is closed")
)

// Status is a point-in-time view of the session.
type Status struct {
	Playback    playback.Status
	Sync        queuesync.Health
	Subscribers int
	StartedAt   time.Time
}

// Manager manages the playback session.
type Manager struct {
	mu sync.RWMutex

	config *config.Config

	// Components
	playback     *playback.Controller
	syncer       *queuesync.Syncer
	store        store.Store
	resolver     *library.Resolver
	filterChain  *filter.Chain
	notification *notification.Manager

	startedAt time.Time
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a new session manager. The store stays owned by the
// caller and must outlive the manager.
func NewManager(cfg *config.Config, player playback.Audio, st store.Store, resolver *library.Resolver) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	syncer := queuesync.New(st, queuesync.Config{MaxPending: cfg.Sync.MaxPending})
	controller := playback.NewController(player, syncer, playback.Config{
		HistoryCapacity:  cfg.Playback.HistoryCapacity,
		RestartThreshold: cfg.Playback.RestartThreshold(),
		Volume:           cfg.Playback.Volume,
	})

	m := &Manager{
		config:       cfg,
		playback:     controller,
		syncer:       syncer,
		store:        st,
		resolver:     resolver,
		filterChain:  filter.NewChain(),
		notification: notification.NewManager(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	m.setupFilters()
	return m
}

// setupFilters builds the admission chain from the enabled filters.
func (m *Manager) setupFilters() {
	cfg := m.config

	for name, factory := range filter.GetRegistered() {
		if !cfg.IsFilterEnabled(name) {
			continue
		}
		f := factory()
		if err := f.ValidateConfig(cfg.FilterSettings(name)); err != nil {
			zlog.Error().Msgf("failed to validate %s config: %v", name, err)
			continue
		}
		m.filterChain.Add(f)
	}

	for _, f := range m.filterChain.Filters() {
		zlog.Info().Msgf("admission filter enabled: name=%s", f.Name())
	}
}

// Start starts the controller and the event loop. The persisted queue is
// reset so that it mirrors the empty in-memory queue of a new session.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrSessionClosed
	}

	if err := m.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "failed to reset persisted queue")
	}

	m.playback.Start()
	go m.playbackLoop()

	m.startedAt = time.Now()
	zlog.Info().Msgf("session started: persistence=%s history_capacity=%d",
		m.config.Persistence.Type, m.config.Playback.HistoryCapacity)
	return nil
}

// Playback returns the transition controller.
func (m *Manager) Playback() *playback.Controller {
	return m.playback
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Done is closed once the session has been closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Resolve turns paths (files, directories or playlists) into tracks, runs them
// through the admission filters against queued and records the admitted ones
// in the store. Unresolvable paths and rejected tracks are logged and skipped.
func (m *Manager) Resolve(ctx context.Context, paths []string, queued []track.Track) ([]track.Track, error) {
	resolved, errs := m.resolver.ResolveAll(paths)
	for _, err := range errs {
		zlog.Warn().Err(err).Msg("skipping unresolvable path")
	}

	tracks, rejected := m.filterChain.Admit(ctx, queued, resolved)
	for _, r := range rejected {
		zlog.Info().Msgf("track rejected: filter=%s code=%s path=%s", r.Result.Filter, r.Result.Code, r.Track.FilePath)
	}

	if len(tracks) == 0 {
		if len(rejected) > 0 {
			return nil, errors.Wrapf(ErrNoTracks, "all %d tracks rejected: %s", len(rejected), rejected[0].Result.Code)
		}
		if len(errs) > 0 {
			return nil, errors.Mark(errs[0], ErrNoTracks)
		}
		return nil, errors.Wrapf(ErrNoTracks, "paths=%v", paths)
	}

	if err := m.store.UpsertTracks(ctx, tracks); err != nil {
		zlog.Warn().Err(err).Msgf("failed to record tracks: count=%d", len(tracks))
	}
	return tracks, nil
}

// AddPaths appends the tracks found under paths and returns how many were added.
func (m *Manager) AddPaths(ctx context.Context, paths []string, playImmediately bool) (int, error) {
	tracks, err := m.Resolve(ctx, paths, m.playback.Items())
	if err != nil {
		return 0, err
	}
	return len(tracks), m.playback.Add(tracks, playImmediately)
}

// InsertPaths splices the tracks found under paths before index and returns
// how many were inserted. An out of range index inserts nothing.
func (m *Manager) InsertPaths(ctx context.Context, index int, paths []string) (int, error) {
	tracks, err := m.Resolve(ctx, paths, m.playback.Items())
	if err != nil {
		return 0, err
	}
	return m.playback.Insert(index, tracks), nil
}

// ReplacePaths replaces the queue with the tracks found under paths. The
// current queue is discarded, so it takes no part in admission.
func (m *Manager) ReplacePaths(ctx context.Context, paths []string, startIndex int) (int, error) {
	tracks, err := m.Resolve(ctx, paths, nil)
	if err != nil {
		return 0, err
	}
	return len(tracks), m.playback.Replace(tracks, startIndex)
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() *Status {
	m.mu.RLock()
	startedAt := m.startedAt
	m.mu.RUnlock()

	return &Status{
		Playback:    m.playback.Status(),
		Sync:        m.syncer.Health(),
		Subscribers: m.notification.SubscriberCount(),
		StartedAt:   startedAt,
	}
}

// Persisted waits for pending writes and returns the stored queue.
func (m *Manager) Persisted(ctx context.Context) (store.Snapshot, error) {
	if err := m.syncer.Flush(ctx); err != nil {
		return store.Snapshot{}, err
	}
	return m.store.Get(ctx)
}

// InitialNotification describes the current state for a new subscriber.
func (m *Manager) InitialNotification() *notification.Notification {
	st := m.playback.Status()
	return &notification.Notification{
		Type:       notification.TypeInitialState,
		SequenceNo: m.notification.NextSequenceNo(),
		Track:      notification.NewTrackInfo(st.Track),
		Index:      st.CurrentIndex,
		State:      st.State.String(),
		PositionMs: st.Position.Milliseconds(),
		DurationMs: st.Duration.Milliseconds(),
		Shuffle:    st.Shuffle,
		Loop:       st.Loop.String(),
		Length:     st.Length,
	}
}

// Close stops playback, drains pending persistence writes and drops all
// subscribers.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.playback.Close()
	err := m.syncer.Close(ctx)
	m.notification.Close()
	close(m.done)

	if err != nil {
		return errors.Wrap(err, "failed to drain persistence writes")
	}
	zlog.Info().Msg("session closed")
	return nil
}

// playbackLoop handles playback events.
func (m *Manager) playbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback loop panicked: %v", r)
			zlog.Info().Msg("restarting playback loop")
			go m.playbackLoop()
		}
	}()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event := <-m.playback.Events():
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent forwards a controller event to subscribers.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	if event.Type == playback.EventProgress {
		zlog.Trace().Msgf("playback event: type=%s position=%s", event.Type, event.Position)
	} else {
		zlog.Info().Msgf("playback event: type=%s index=%d state=%s", event.Type, event.Index, event.State)
	}

	m.notification.Broadcast(m.buildNotification(event))
}

func (m *Manager) buildNotification(event playback.Event) *notification.Notification {
	st := m.playback.Status()
	n := &notification.Notification{
		Type:       event.Type.String(),
		Track:      notification.NewTrackInfo(event.Track),
		Index:      event.Index,
		State:      event.State.String(),
		PositionMs: event.Position.Milliseconds(),
		DurationMs: event.Duration.Milliseconds(),
		Shuffle:    st.Shuffle,
		Loop:       st.Loop.String(),
		Length:     st.Length,
	}
	if event.Err != nil {
		n.Error = event.Err.Error()
	}
	return n
}
