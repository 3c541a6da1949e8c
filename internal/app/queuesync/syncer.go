// Package queuesync propagates queue mutations to a persistence backend.
//
// Every call enqueues an operation and returns immediately. A single worker
// applies operations in order. Failures are logged and counted, never
// returned to the caller and never retried.
package queuesync

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/playmode"
)

// Backend is the write side of the persisted queue.
type Backend interface {
	Add(ctx context.Context, trackIDs []string, position *int) error
	Remove(ctx context.Context, position int) error
	Move(ctx context.Context, from, to int) error
	Clear(ctx context.Context) error
	SetCurrentIndex(ctx context.Context, index int) error
	SetShuffle(ctx context.Context, on bool) error
	SetLoop(ctx context.Context, mode playmode.LoopMode) error
}

// Config holds syncer configuration.
type Config struct {
	MaxPending int // Pending operations above which a warning is logged
}

// Health is a snapshot of the syncer's progress.
type Health struct {
	Pending     int
	Applied     uint64
	Failed      uint64
	LastError   string
	LastErrorAt time.Time
}

// Healthy reports whether the last applied operation succeeded.
func (h Health) Healthy() bool {
	return h.LastError == ""
}

type op struct {
	name  string
	apply func(ctx context.Context, b Backend) error
}

// Syncer is a fire-and-forget, order-preserving writer.
type Syncer struct {
	backend Backend
	config  Config

	mu       sync.Mutex
	pending  []op
	inFlight bool
	health   Health
	warned   bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a syncer and starts its worker.
func New(backend Backend, config Config) *Syncer {
	if config.MaxPending <= 0 {
		config.MaxPending = 1024
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Syncer{
		backend: backend,
		config:  config,
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Add persists tracks appended at the tail, or spliced at position.
func (s *Syncer) Add(trackIDs []string, position *int) {
	ids := append([]string(nil), trackIDs...)
	var pos *int
	if position != nil {
		p := *position
		pos = &p
	}
	s.enqueue("add", func(ctx context.Context, b Backend) error {
		return b.Add(ctx, ids, pos)
	})
}

// Remove persists the removal of the entry at position.
func (s *Syncer) Remove(position int) {
	s.enqueue("remove", func(ctx context.Context, b Backend) error {
		return b.Remove(ctx, position)
	})
}

// Move persists a reorder.
func (s *Syncer) Move(from, to int) {
	s.enqueue("move", func(ctx context.Context, b Backend) error {
		return b.Move(ctx, from, to)
	})
}

// Clear persists an emptied queue.
func (s *Syncer) Clear() {
	s.enqueue("clear", func(ctx context.Context, b Backend) error {
		return b.Clear(ctx)
	})
}

// SetCurrentIndex persists the active index.
func (s *Syncer) SetCurrentIndex(index int) {
	s.enqueue("set_current_index", func(ctx context.Context, b Backend) error {
		return b.SetCurrentIndex(ctx, index)
	})
}

// SetShuffle persists the shuffle flag.
func (s *Syncer) SetShuffle(on bool) {
	s.enqueue("set_shuffle", func(ctx context.Context, b Backend) error {
		return b.SetShuffle(ctx, on)
	})
}

// SetLoop persists the loop mode.
func (s *Syncer) SetLoop(mode playmode.LoopMode) {
	s.enqueue("set_loop", func(ctx context.Context, b Backend) error {
		return b.SetLoop(ctx, mode)
	})
}

// Replace persists a full reordering of the queue, such as a shuffle.
func (s *Syncer) Replace(trackIDs []string, currentIndex int) {
	ids := append([]string(nil), trackIDs...)
	s.enqueue("replace", func(ctx context.Context, b Backend) error {
		if err := b.Clear(ctx); err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := b.Add(ctx, ids, nil); err != nil {
				return err
			}
		}
		return b.SetCurrentIndex(ctx, currentIndex)
	})
}

// Health returns the current health snapshot.
func (s *Syncer) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.health
	h.Pending = len(s.pending)
	if s.inFlight {
		h.Pending++
	}
	return h
}

// Flush waits until every operation enqueued so far has been applied.
func (s *Syncer) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		idle := len(s.pending) == 0 && !s.inFlight
		s.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "flush queue sync")
		case <-s.done:
			return nil
		case <-ticker.C:
		}
	}
}

// Close drains pending operations until ctx expires, then stops the worker.
func (s *Syncer) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.cancel()
	<-s.done
	return err
}

func (s *Syncer) enqueue(name string, apply func(ctx context.Context, b Backend) error) {
	s.mu.Lock()
	s.pending = append(s.pending, op{name: name, apply: apply})
	n := len(s.pending)
	if n > s.config.MaxPending && !s.warned {
		s.warned = true
		zlog.Warn().Msgf("queuesync: backlog above threshold: pending=%d max=%d", n, s.config.MaxPending)
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Syncer) run() {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.pending) == 0 {
				s.warned = false
				s.mu.Unlock()
				break
			}
			next := s.pending[0]
			s.pending = s.pending[1:]
			s.inFlight = true
			s.mu.Unlock()

			err := next.apply(context.Background(), s.backend)
			s.record(next.name, err)
		}
	}
}

func (s *Syncer) record(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	if err != nil {
		s.health.Failed++
		s.health.LastError = name + ": " + err.Error()
		s.health.LastErrorAt = time.Now()
		zlog.Warn().Err(err).Msgf("queuesync: operation failed: op=%s", name)
		return
	}
	s.health.Applied++
	s.health.LastError = ""
	s.health.LastErrorAt = time.Time{}
	zlog.Debug().Msgf("queuesync: operation applied: op=%s", name)
}
