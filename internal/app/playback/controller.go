package playback

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/app/queue"
	"github.com/osa030/19deck/internal/domain/playmode"
	"github.com/osa030/19deck/internal/domain/track"
	"github.com/osa030/19deck/internal/infra/audio"
)

// ErrAudioUnavailable marks failures reported by the audio engine.
var ErrAudioUnavailable = errors.New("audio engine failed")

// DefaultRestartThreshold is how far into a track "previous" restarts it
// instead of navigating.
const DefaultRestartThreshold = 3 * time.Second

// Audio is the audio engine driven by the controller.
// A Load supersedes any earlier load.
type Audio interface {
	Load(path string) (audio.Loaded, error)
	Play() error
	Pause() error
	Stop() error
	Seek(position time.Duration) error
	SetVolume(volume float64) error
	Events() <-chan audio.Event
}

// Persister receives every queue mutation. Calls must not block.
type Persister interface {
	Add(trackIDs []string, position *int)
	Remove(position int)
	Move(from, to int)
	Clear()
	SetCurrentIndex(index int)
	SetShuffle(on bool)
	SetLoop(mode playmode.LoopMode)
	Replace(trackIDs []string, currentIndex int)
}

// Config holds controller configuration.
type Config struct {
	HistoryCapacity  int           // Navigation history bound
	RestartThreshold time.Duration // Position above which previous restarts the track
	Volume           float64       // Initial volume (0..1)
	Rand             *rand.Rand    // Shuffle source; seeded from time when nil
}

// Status is a point-in-time view of the controller.
type Status struct {
	State        State
	Track        *track.Track
	CurrentIndex int
	Length       int
	Shuffle      bool
	Loop         playmode.LoopMode
	RepeatPhase  RepeatPhase
	Position     time.Duration
	Duration     time.Duration
	Volume       float64
	HasNext      bool
	HasPrevious  bool
}

// Controller is the single owner of the play queue. Every operation runs to
// completion under its mutex, so mutations never interleave.
type Controller struct {
	mu sync.RWMutex

	queue   *queue.Queue
	audio   Audio
	persist Persister
	config  Config

	state      State
	repeat     RepeatPhase
	position   time.Duration
	duration   time.Duration
	volume     float64
	generation uint64 // audio load whose events are accepted; 0 while stopped

	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a new transition controller. A nil persister disables
// persistence.
func NewController(a Audio, persist Persister, config Config) *Controller {
	if config.RestartThreshold <= 0 {
		config.RestartThreshold = DefaultRestartThreshold
	}
	if config.Volume < 0 || config.Volume > 1 {
		config.Volume = 1
	}
	if persist == nil {
		persist = nopPersister{}
	}

	opts := []queue.Option{queue.WithHistoryCapacity(config.HistoryCapacity)}
	if config.Rand != nil {
		opts = append(opts, queue.WithRand(config.Rand))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		queue:   queue.New(opts...),
		audio:   a,
		persist: persist,
		config:  config,
		state:   StateStopped,
		volume:  config.Volume,
		eventCh: make(chan Event, 64),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Start applies the initial volume and begins consuming audio engine events.
func (c *Controller) Start() {
	if err := c.audio.SetVolume(c.volume); err != nil {
		zlog.Warn().Err(err).Msg("failed to apply initial volume")
	}
	go c.audioLoop()
}

// Close stops the audio loop and the audio engine.
func (c *Controller) Close() {
	c.cancel()
	c.mu.Lock()
	if err := c.audio.Stop(); err != nil {
		zlog.Warn().Err(err).Msg("failed to stop audio on close")
	}
	c.state = StateStopped
	c.mu.Unlock()
}

// Done is closed when the audio loop has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// PlayIndex jumps to index i. A manual jump clears the navigation history.
func (c *Controller) PlayIndex(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playIndexLocked(i, false)
}

// PlayNext advances as if the current track ended.
func (c *Controller) PlayNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Len() == 0 {
		return nil
	}
	return c.advanceLocked(true)
}

// PlayPrevious restarts the current track when it has played past the
// restart threshold, otherwise navigates back.
func (c *Controller) PlayPrevious() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Len() == 0 {
		return nil
	}
	return c.previousLocked()
}

// SkipNext is an explicit skip. It escapes repeat-one before advancing.
func (c *Controller) SkipNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Len() == 0 {
		return nil
	}
	c.escapeRepeatOneLocked()
	return c.advanceLocked(false)
}

// SkipPrevious is an explicit back. It escapes repeat-one before navigating.
func (c *Controller) SkipPrevious() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Len() == 0 {
		return nil
	}
	c.escapeRepeatOneLocked()
	return c.previousLocked()
}

// Add appends tracks. With playImmediately the first added track starts.
func (c *Controller) Add(tracks []track.Track, playImmediately bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	first := c.queue.Add(tracks)
	if first < 0 {
		return nil
	}
	c.persist.Add(track.IDs(tracks), nil)
	c.sendQueueChangedLocked()

	if playImmediately {
		return c.playIndexLocked(first, false)
	}
	return nil
}

// Insert splices tracks before index and returns the number inserted.
// Index len appends. An out of range index inserts nothing.
func (c *Controller) Insert(index int, tracks []track.Track) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.queue.CurrentIndex()
	n := c.queue.Insert(index, tracks)
	if n == 0 {
		return 0
	}
	c.persist.Add(track.IDs(tracks), &index)
	c.persistIndexIfMovedLocked(before)
	c.sendQueueChangedLocked()
	return n
}

// Remove deletes the entry at index. Removing the active entry moves playback
// to the entry that takes its place, or stops when the queue empties.
func (c *Controller) Remove(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.queue.CurrentIndex()
	res := c.queue.Remove(index)
	if !res.Removed {
		return nil
	}
	c.persist.Remove(index)
	c.sendQueueChangedLocked()

	switch {
	case res.Emptied:
		c.repeat = RepeatIdle
		c.stopLocked()
		c.persist.SetCurrentIndex(-1)
		return nil
	case res.WasCurrent && c.state == StatePlaying:
		c.repeat = RepeatIdle
		return c.playIndexLocked(c.queue.CurrentIndex(), true)
	case res.WasCurrent:
		c.repeat = RepeatIdle
		c.stopLocked()
		c.persist.SetCurrentIndex(c.queue.CurrentIndex())
		return nil
	default:
		c.persistIndexIfMovedLocked(before)
		return nil
	}
}

// Reorder moves the entry at from so that it ends up at index to.
func (c *Controller) Reorder(from, to int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.queue.CurrentIndex()
	if !c.queue.Reorder(from, to) {
		return
	}
	c.persist.Move(from, to)
	c.persistIndexIfMovedLocked(before)
	c.sendQueueChangedLocked()
}

// Clear empties the queue and stops playback.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.Len() == 0 {
		return
	}
	c.queue.Clear()
	c.repeat = RepeatIdle
	c.persist.Clear()
	c.stopLocked()
	c.sendQueueChangedLocked()
}

// Replace swaps the whole queue and starts playback at startIndex. An
// out-of-range startIndex loads the queue without playing.
func (c *Controller) Replace(tracks []track.Track, startIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue.Clear()
	c.queue.Add(tracks)
	c.repeat = RepeatIdle
	c.persist.Replace(track.IDs(tracks), -1)
	c.sendQueueChangedLocked()

	if startIndex < 0 || startIndex >= c.queue.Len() {
		c.stopLocked()
		return nil
	}
	return c.playIndexLocked(startIndex, false)
}

// ToggleShuffle flips shuffle and returns the new value.
func (c *Controller) ToggleShuffle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	on := !c.queue.Shuffle()
	c.setShuffleLocked(on)
	return on
}

// SetShuffle turns shuffle on or off.
func (c *Controller) SetShuffle(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setShuffleLocked(on)
}

// SetLoop sets the loop mode and resets the repeat-one phase.
func (c *Controller) SetLoop(mode playmode.LoopMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLoopLocked(mode)
}

// CycleLoop advances none -> all -> one -> none and returns the new mode.
func (c *Controller) CycleLoop() playmode.LoopMode {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.queue.Loop().Next()
	c.setLoopLocked(next)
	return next
}

// Pause pauses a playing track.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pauseLocked()
}

// Resume resumes a paused track.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resumeLocked()
}

// TogglePlay pauses, resumes, or starts playback depending on the state.
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePlaying:
		return c.pauseLocked()
	case StatePaused:
		return c.resumeLocked()
	}

	if c.queue.Len() == 0 {
		return nil
	}
	if cur := c.queue.CurrentIndex(); cur >= 0 {
		return c.playIndexLocked(cur, true)
	}
	return c.playIndexLocked(0, false)
}

// Stop stops playback and keeps the current index.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped {
		return
	}
	c.stopLocked()
}

// Seek moves within the current track.
func (c *Controller) Seek(position time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped || c.queue.CurrentIndex() < 0 {
		return nil
	}
	if position < 0 {
		position = 0
	}
	if err := c.audio.Seek(position); err != nil {
		return c.audioFailedLocked(err, "seek")
	}
	c.position = position
	return nil
}

// SetVolume sets the output volume, clamped to 0..1.
func (c *Controller) SetVolume(volume float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	volume = min(max(volume, 0), 1)
	if err := c.audio.SetVolume(volume); err != nil {
		return c.audioFailedLocked(err, "set volume")
	}
	c.volume = volume
	return nil
}

// CurrentTrack returns the active track.
func (c *Controller) CurrentTrack() (track.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.Current()
}

// CurrentIndex returns the active index, or -1.
func (c *Controller) CurrentIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.CurrentIndex()
}

// Items returns the queue in play order.
func (c *Controller) Items() []track.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.Items()
}

// HasNext reports whether a next track exists.
func (c *Controller) HasNext() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.HasNext()
}

// HasPrevious reports whether a previous track exists.
func (c *Controller) HasPrevious() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.HasPrevious()
}

// PlayOrderItems returns what plays from now on.
func (c *Controller) PlayOrderItems() []queue.PlayOrderItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.PlayOrderItems()
}

// UpcomingTracks returns the tracks after the current one, in play order.
func (c *Controller) UpcomingTracks() []track.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queue.UpcomingTracks()
}

// GetState returns the transport state.
func (c *Controller) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Status{
		State:        c.state,
		CurrentIndex: c.queue.CurrentIndex(),
		Length:       c.queue.Len(),
		Shuffle:      c.queue.Shuffle(),
		Loop:         c.queue.Loop(),
		RepeatPhase:  c.repeat,
		Position:     c.position,
		Duration:     c.duration,
		Volume:       c.volume,
		HasNext:      c.queue.HasNext(),
		HasPrevious:  c.queue.HasPrevious(),
	}
	if t, ok := c.queue.Current(); ok {
		s.Track = &t
	}
	return s
}

func (c *Controller) playIndexLocked(i int, fromNavigation bool) error {
	if i < 0 || i >= c.queue.Len() {
		return nil
	}
	if !fromNavigation {
		c.queue.History().Clear()
		c.repeat = RepeatIdle
	}

	c.queue.SetCurrent(i)
	c.position = 0
	c.duration = 0
	c.persist.SetCurrentIndex(i)

	t, _ := c.queue.Current()
	zlog.Debug().Msgf("play track: index=%d track_id=%s", i, t.ID)

	loaded, err := c.audio.Load(t.FilePath)
	if err != nil {
		c.generation = 0
		c.state = StateStopped
		return c.audioFailedLocked(err, "load "+t.FilePath)
	}
	c.generation = loaded.Generation
	d := loaded.Duration
	if d <= 0 {
		d = t.Duration
	}
	c.duration = d

	if err := c.audio.Play(); err != nil {
		c.state = StateStopped
		return c.audioFailedLocked(err, "play "+t.FilePath)
	}
	c.state = StatePlaying

	zlog.Info().Msgf("track started: index=%d track_id=%s name=%s", i, t.ID, t.DisplayName())
	c.sendEventLocked(Event{
		Type:     EventTrackStarted,
		Track:    &t,
		Index:    i,
		State:    c.state,
		Duration: c.duration,
	})
	return nil
}

// advanceLocked moves to the next entry. With honorRepeat the repeat-one
// sequence is applied first: replay once, then drop to loop none and advance.
func (c *Controller) advanceLocked(honorRepeat bool) error {
	cur := c.queue.CurrentIndex()

	if honorRepeat && c.queue.Loop() == playmode.LoopOne && cur >= 0 {
		if c.repeat == RepeatIdle {
			c.repeat = RepeatOnePending
			return c.playIndexLocked(cur, true)
		}
		c.repeat = RepeatIdle
		c.setLoopLocked(playmode.LoopNone)
	}

	next := cur + 1
	if next >= c.queue.Len() {
		if c.queue.Loop() != playmode.LoopAll {
			c.endOfQueueLocked()
			return nil
		}
		if c.queue.Shuffle() {
			c.queue.Reshuffle(c.queue.ActiveKey())
			c.persist.Replace(track.IDs(c.queue.Items()), 0)
			c.sendQueueChangedLocked()
		} else {
			c.queue.History().Push(cur)
		}
		next = 0
	} else {
		c.queue.History().Push(cur)
	}

	return c.playIndexLocked(next, true)
}

func (c *Controller) previousLocked() error {
	if c.queue.CurrentIndex() >= 0 && c.state != StateStopped && c.position > c.config.RestartThreshold {
		if err := c.audio.Seek(0); err != nil {
			return c.audioFailedLocked(err, "restart")
		}
		c.position = 0
		return nil
	}

	if i, ok := c.queue.History().Pop(c.queue.Len()); ok {
		return c.playIndexLocked(i, true)
	}

	prev := c.queue.CurrentIndex() - 1
	if prev < 0 {
		if c.queue.Loop() == playmode.LoopAll {
			prev = c.queue.Len() - 1
		} else {
			prev = 0
		}
	}
	return c.playIndexLocked(prev, true)
}

func (c *Controller) escapeRepeatOneLocked() {
	if c.queue.Loop() == playmode.LoopOne {
		c.setLoopLocked(playmode.LoopAll)
	}
	c.repeat = RepeatIdle
}

// endOfQueueLocked halts at the last entry without moving the index.
func (c *Controller) endOfQueueLocked() {
	if err := c.audio.Pause(); err != nil {
		zlog.Warn().Err(err).Msg("failed to pause audio at end of queue")
	}
	c.state = StateStopped
	zlog.Info().Msg("end of queue reached")
	c.sendEventLocked(Event{
		Type:  EventPlaybackStopped,
		Track: c.currentTrackLocked(),
		Index: c.queue.CurrentIndex(),
		State: c.state,
	})
}

func (c *Controller) stopLocked() {
	if err := c.audio.Stop(); err != nil {
		zlog.Warn().Err(err).Msg("failed to stop audio")
	}
	c.generation = 0
	c.state = StateStopped
	c.position = 0
	c.sendEventLocked(Event{
		Type:  EventPlaybackStopped,
		Track: c.currentTrackLocked(),
		Index: c.queue.CurrentIndex(),
		State: c.state,
	})
}

func (c *Controller) pauseLocked() error {
	if c.state != StatePlaying {
		return nil
	}
	if err := c.audio.Pause(); err != nil {
		return c.audioFailedLocked(err, "pause")
	}
	c.state = StatePaused
	c.sendStateChangedLocked()
	return nil
}

func (c *Controller) resumeLocked() error {
	if c.state != StatePaused {
		return nil
	}
	if err := c.audio.Play(); err != nil {
		return c.audioFailedLocked(err, "resume")
	}
	c.state = StatePlaying
	c.sendStateChangedLocked()
	return nil
}

func (c *Controller) setShuffleLocked(on bool) {
	if !c.queue.SetShuffle(on) {
		return
	}
	if c.queue.Len() > 0 {
		c.persist.Replace(track.IDs(c.queue.Items()), c.queue.CurrentIndex())
	}
	c.persist.SetShuffle(on)
	c.sendQueueChangedLocked()
	c.sendModesChangedLocked()
}

func (c *Controller) setLoopLocked(mode playmode.LoopMode) {
	c.repeat = RepeatIdle
	if c.queue.Loop() == mode {
		return
	}
	c.queue.SetLoop(mode)
	c.persist.SetLoop(mode)
	c.sendModesChangedLocked()
}

func (c *Controller) persistIndexIfMovedLocked(before int) {
	if after := c.queue.CurrentIndex(); after != before {
		c.persist.SetCurrentIndex(after)
	}
}

// audioFailedLocked publishes an audio failure and returns it marked with
// ErrAudioUnavailable. The queue is left untouched.
func (c *Controller) audioFailedLocked(err error, op string) error {
	err = errors.Mark(errors.Wrap(err, op), ErrAudioUnavailable)
	zlog.Error().Err(err).Msg("audio engine failure")
	c.sendEventLocked(Event{
		Type:  EventPlaybackError,
		Track: c.currentTrackLocked(),
		Index: c.queue.CurrentIndex(),
		State: c.state,
		Err:   err,
	})
	return err
}

func (c *Controller) currentTrackLocked() *track.Track {
	t, ok := c.queue.Current()
	if !ok {
		return nil
	}
	return &t
}

func (c *Controller) sendQueueChangedLocked() {
	c.sendEventLocked(Event{
		Type:  EventQueueChanged,
		Track: c.currentTrackLocked(),
		Index: c.queue.CurrentIndex(),
		State: c.state,
	})
}

func (c *Controller) sendModesChangedLocked() {
	c.sendEventLocked(Event{
		Type:  EventModesChanged,
		Index: c.queue.CurrentIndex(),
		State: c.state,
	})
}

func (c *Controller) sendStateChangedLocked() {
	c.sendEventLocked(Event{
		Type:     EventStateChanged,
		Track:    c.currentTrackLocked(),
		Index:    c.queue.CurrentIndex(),
		State:    c.state,
		Position: c.position,
		Duration: c.duration,
	})
}

// sendEventLocked sends an event without blocking.
func (c *Controller) sendEventLocked(e Event) {
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		zlog.Debug().Msgf("event dropped: type=%s", e.Type)
	}
}

// audioLoop feeds engine events back into the controller.
func (c *Controller) audioLoop() {
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-c.audio.Events():
			if !ok {
				return
			}
			c.handleAudioEvent(ev)
		}
	}
}

// handleAudioEvent applies an engine event. Events left over from an earlier
// load are dropped so a track ending never overrides a newer instruction.
func (c *Controller) handleAudioEvent(ev audio.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Generation == 0 || ev.Generation != c.generation {
		zlog.Debug().Msgf("dropping stale audio event: type=%s generation=%d current=%d", ev.Type, ev.Generation, c.generation)
		return
	}

	switch ev.Type {
	case audio.EventProgress:
		c.position = ev.Position
		if ev.Duration > 0 {
			c.duration = ev.Duration
		}
		c.sendEventLocked(Event{
			Type:     EventProgress,
			Track:    c.currentTrackLocked(),
			Index:    c.queue.CurrentIndex(),
			State:    c.state,
			Position: c.position,
			Duration: c.duration,
		})

	case audio.EventTrackEnded:
		if c.queue.Len() == 0 {
			return
		}
		if err := c.advanceLocked(true); err != nil {
			zlog.Warn().Err(err).Msg("failed to advance after track ended")
		}

	case audio.EventLoadError:
		c.generation = 0
		c.state = StateStopped
		_ = c.audioFailedLocked(ev.Err, "decode")
	}
}

type nopPersister struct{}

func (nopPersister) Add([]string, *int)        {}
func (nopPersister) Remove(int)                {}
func (nopPersister) Move(int, int)             {}
func (nopPersister) Clear()                    {}
func (nopPersister) SetCurrentIndex(int)       {}
func (nopPersister) SetShuffle(bool)           {}
func (nopPersister) SetLoop(playmode.LoopMode) {}
func (nopPersister) Replace([]string, int)     {}
