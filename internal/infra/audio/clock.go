package audio

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Clock is a silent engine. It decodes files to learn their length and then
// keeps time as if they were playing.
type Clock struct {
	mu sync.Mutex

	interval   time.Duration
	generation uint64 // bumped on every load and stop
	loaded     bool
	duration  time.Duration
	offset    time.Duration // position at the last pause, seek, or load
	startedAt time.Time     // zero while paused
	volume    float64

	events chan Event
	stop   chan struct{}
	once   sync.Once
}

// NewClock creates a silent engine that reports progress every interval.
func NewClock(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	c := &Clock{
		interval: interval,
		volume:   1,
		events:   make(chan Event, 16),
		stop:     make(chan struct{}),
	}
	go c.run()
	return c
}

// Load decodes path and parks at the start.
func (c *Clock) Load(path string) (Loaded, error) {
	src, err := Decode(path)
	if err != nil {
		c.mu.Lock()
		c.generation++
		c.loaded = false
		c.startedAt = time.Time{}
		c.mu.Unlock()
		return Loaded{}, err
	}
	d := src.Duration()
	src.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.loaded = true
	c.duration = d
	c.offset = 0
	c.startedAt = time.Time{}
	zlog.Debug().Msgf("clock engine loaded: path=%s duration=%s generation=%d", path, d, c.generation)
	return Loaded{Duration: d, Generation: c.generation}, nil
}

// Play starts or resumes the clock.
func (c *Clock) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return ErrNothingLoaded
	}
	if c.startedAt.IsZero() {
		c.startedAt = time.Now()
	}
	return nil
}

// Pause freezes the clock.
func (c *Clock) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return ErrNothingLoaded
	}
	c.offset = c.positionLocked()
	c.startedAt = time.Time{}
	return nil
}

// Stop unloads the track.
func (c *Clock) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.loaded = false
	c.offset = 0
	c.startedAt = time.Time{}
	return nil
}

// Seek moves the clock, clamped to the track length.
func (c *Clock) Seek(position time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return ErrNothingLoaded
	}
	c.offset = min(max(position, 0), c.duration)
	if !c.startedAt.IsZero() {
		c.startedAt = time.Now()
	}
	return nil
}

// SetVolume records the volume.
func (c *Clock) SetVolume(volume float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = volume
	return nil
}

// Position returns the current position.
func (c *Clock) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

// Events returns the event channel.
func (c *Clock) Events() <-chan Event {
	return c.events
}

// Close stops the progress loop.
func (c *Clock) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *Clock) positionLocked() time.Duration {
	pos := c.offset
	if !c.startedAt.IsZero() {
		pos += time.Since(c.startedAt)
	}
	return min(pos, c.duration)
}

func (c *Clock) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Clock) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded || c.startedAt.IsZero() {
		return
	}

	pos := c.positionLocked()
	if pos >= c.duration {
		c.offset = c.duration
		c.startedAt = time.Time{}
		emit(c.events, Event{Type: EventTrackEnded, Generation: c.generation, Position: pos, Duration: c.duration})
		return
	}
	emit(c.events, Event{Type: EventProgress, Generation: c.generation, Position: pos, Duration: c.duration, Playing: true})
}
