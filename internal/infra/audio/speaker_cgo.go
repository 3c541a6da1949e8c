//go:build (linux && cgo) || windows || darwin

package audio

import (
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// Available indicates whether sound output is supported in this build.
const Available = true

// New creates the speaker engine, or a silent clock when cfg.Silent is set.
func New(cfg Config) (Player, error) {
	cfg = cfg.withDefaults()
	if cfg.Silent {
		return NewClock(cfg.ProgressInterval), nil
	}
	return newSpeakerEngine(cfg), nil
}

// speakerEngine plays through the system audio device with beep.
type speakerEngine struct {
	mu sync.Mutex

	config      Config
	initialized bool
	sampleRate  beep.SampleRate

	src        *Source
	ctrl       *beep.Ctrl
	volume     *effects.Volume
	level      float64
	playbackID uint64 // bumped on every load and stop; stale callbacks compare against it

	events chan Event
	stop   chan struct{}
	once   sync.Once
}

func newSpeakerEngine(cfg Config) *speakerEngine {
	e := &speakerEngine{
		config:     cfg,
		sampleRate: beep.SampleRate(cfg.SampleRate),
		level:      1,
		events:     make(chan Event, 16),
		stop:       make(chan struct{}),
	}
	go e.progressLoop()
	return e
}

// initSpeakerLocked initializes the speaker on first use.
func (e *speakerEngine) initSpeakerLocked() error {
	if e.initialized {
		return nil
	}
	if err := speaker.Init(e.sampleRate, e.sampleRate.N(e.config.Buffer)); err != nil {
		return errors.Wrap(err, "failed to initialize speaker")
	}
	e.initialized = true
	return nil
}

func (e *speakerEngine) Load(path string) (Loaded, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()

	src, err := Decode(path)
	if err != nil {
		return Loaded{}, err
	}
	if err := e.initSpeakerLocked(); err != nil {
		src.Close()
		return Loaded{}, err
	}

	var s beep.Streamer = src.Streamer
	if src.Format.SampleRate != e.sampleRate {
		s = beep.Resample(4, src.Format.SampleRate, e.sampleRate, src.Streamer)
	}

	e.src = src
	e.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	e.volume = &effects.Volume{Streamer: e.ctrl, Base: 2}
	applyVolume(e.volume, e.level)

	id := e.playbackID
	speaker.Play(beep.Seq(e.volume, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker locked.
		go e.finished(id)
	})))

	d := src.Duration()
	zlog.Debug().Msgf("speaker engine loaded: path=%s duration=%s playback_id=%d", path, d, id)
	return Loaded{Duration: d, Generation: id}, nil
}

func (e *speakerEngine) Play() error {
	return e.setPaused(false)
}

func (e *speakerEngine) Pause() error {
	return e.setPaused(true)
}

func (e *speakerEngine) setPaused(paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return ErrNothingLoaded
	}
	speaker.Lock()
	e.ctrl.Paused = paused
	speaker.Unlock()
	return nil
}

func (e *speakerEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	return nil
}

func (e *speakerEngine) stopLocked() {
	e.playbackID++
	if e.initialized {
		speaker.Clear()
	}
	if e.src != nil {
		e.src.Close()
		e.src = nil
	}
	e.ctrl = nil
	e.volume = nil
}

func (e *speakerEngine) Seek(position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.src == nil {
		return ErrNothingLoaded
	}

	speaker.Lock()
	defer speaker.Unlock()

	n := e.src.Format.SampleRate.N(position)
	n = min(max(n, 0), max(e.src.Streamer.Len()-1, 0))
	if err := e.src.Streamer.Seek(n); err != nil {
		return errors.Wrap(err, "failed to seek")
	}
	return nil
}

func (e *speakerEngine) SetVolume(volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.level = volume
	if e.volume != nil {
		speaker.Lock()
		applyVolume(e.volume, volume)
		speaker.Unlock()
	}
	return nil
}

func (e *speakerEngine) Events() <-chan Event {
	return e.events
}

func (e *speakerEngine) Close() error {
	e.once.Do(func() { close(e.stop) })
	return e.Stop()
}

func (e *speakerEngine) finished(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id != e.playbackID || e.src == nil {
		return
	}
	d := e.src.Duration()
	emit(e.events, Event{Type: EventTrackEnded, Generation: id, Position: d, Duration: d})
}

func (e *speakerEngine) progressLoop() {
	ticker := time.NewTicker(e.config.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.reportProgress()
		}
	}
}

func (e *speakerEngine) reportProgress() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.src == nil || e.ctrl == nil {
		return
	}

	speaker.Lock()
	paused := e.ctrl.Paused
	pos := e.src.Format.SampleRate.D(e.src.Streamer.Position())
	err := e.src.Streamer.Err()
	speaker.Unlock()

	id := e.playbackID
	if err != nil {
		e.stopLocked()
		emit(e.events, Event{Type: EventLoadError, Generation: id, Err: errors.Wrap(err, "decode")})
		return
	}
	if paused {
		return
	}
	emit(e.events, Event{Type: EventProgress, Generation: id, Position: pos, Duration: e.src.Duration(), Playing: true})
}

// applyVolume maps a linear 0..1 level onto beep's logarithmic volume.
func applyVolume(v *effects.Volume, level float64) {
	if level <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(level)
}
