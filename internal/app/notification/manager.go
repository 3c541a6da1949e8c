// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/track"
)

// TypeInitialState is sent once to a new subscriber before any broadcast.
// Other notification types carry the playback event name.
const TypeInitialState = "initial_state"

const (
	sendTimeout = 500 * time.Millisecond
	maxFailures = 3
)

// TrackInfo is the wire form of a track reference.
type TrackInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	FilePath   string `json:"file_path"`
	DurationMs int64  `json:"duration_ms"`
}

// NewTrackInfo converts a track; nil stays nil.
func NewTrackInfo(t *track.Track) *TrackInfo {
	if t == nil {
		return nil
	}
	return &TrackInfo{
		ID:         t.ID,
		Title:      t.Title,
		Artist:     t.Artist,
		Album:      t.Album,
		FilePath:   t.FilePath,
		DurationMs: t.DurationMs(),
	}
}

// Notification is a single event delivered to subscribers.
type Notification struct {
	Type       string     `json:"type"`
	SequenceNo uint64     `json:"sequence_no"`
	Track      *TrackInfo `json:"track,omitempty"`
	Index      int        `json:"index"`
	State      string     `json:"state,omitempty"`
	PositionMs int64      `json:"position_ms,omitempty"`
	DurationMs int64      `json:"duration_ms,omitempty"`
	Shuffle    bool       `json:"shuffle"`
	Loop       string     `json:"loop,omitempty"`
	Length     int        `json:"length"`
	Error      string     `json:"error,omitempty"`
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id       string
	stream   Stream
	failures atomic.Int32 // consecutive failed or timed out sends
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    atomic.Uint64
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	zlog.Debug().Msgf("subscriber added: subscription_id=%s count=%d", id, len(m.subscriptions))
	return id
}

// NextSequenceNo returns the next sequence number.
func (m *Manager) NextSequenceNo() uint64 {
	return m.sequenceNo.Add(1)
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast stamps the next sequence number and sends the notification to all
// subscribers in parallel. A send that fails or exceeds the send timeout is
// skipped; after maxFailures consecutive misses the subscriber is dropped.
func (m *Manager) Broadcast(notification *Notification) {
	notification.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			if m.deliver(s, notification) {
				s.failures.Store(0)
				return
			}
			if s.failures.Add(1) >= maxFailures {
				zlog.Info().Msgf("dropping unresponsive subscriber: subscription_id=%s", s.id)
				m.Unsubscribe(s.id)
			}
		}(sub)
	}

	wg.Wait()
}

// deliver sends one notification, giving up after sendTimeout. The send
// itself may still complete later.
func (m *Manager) deliver(s *subscription, notification *Notification) bool {
	done := make(chan error, 1)
	go func() {
		done <- s.stream.Send(notification)
	}()

	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			zlog.Debug().Err(err).Msgf("notification send failed: subscription_id=%s", s.id)
			return false
		}
		return true
	case <-timer.C:
		zlog.Debug().Msgf("notification send timed out: subscription_id=%s seq=%d", s.id, notification.SequenceNo)
		return false
	}
}

// Send sends a notification to a specific subscriber.
func (m *Manager) Send(subscriptionID string, notification *Notification) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil
	}

	return sub.stream.Send(notification)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
