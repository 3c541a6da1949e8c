package connect

import (
	"time"

	"github.com/samber/lo"

	"github.com/osa030/19deck/internal/app/notification"
	"github.com/osa030/19deck/internal/app/queue"
	"github.com/osa030/19deck/internal/app/session"
	"github.com/osa030/19deck/internal/domain/track"
	"github.com/osa030/19deck/internal/infra/store"
)

// Empty is the request of parameterless procedures.
type Empty struct{}

// TrackInfo is the wire form of a track reference.
type TrackInfo = notification.TrackInfo

// Notification is a watch stream message.
type Notification = notification.Notification

// SyncHealth reports persistence sync progress.
type SyncHealth struct {
	Healthy     bool   `json:"healthy"`
	Pending     int    `json:"pending"`
	Applied     uint64 `json:"applied"`
	Failed      uint64 `json:"failed"`
	LastError   string `json:"last_error,omitempty"`
	LastErrorAt string `json:"last_error_at,omitempty"`
}

// StatusResponse describes the player.
type StatusResponse struct {
	State        string     `json:"state"`
	Track        *TrackInfo `json:"track,omitempty"`
	CurrentIndex int        `json:"current_index"`
	Length       int        `json:"length"`
	Shuffle      bool       `json:"shuffle"`
	Loop         string     `json:"loop"`
	RepeatPhase  string     `json:"repeat_phase"`
	PositionMs   int64      `json:"position_ms"`
	DurationMs   int64      `json:"duration_ms"`
	Volume       float64    `json:"volume"`
	HasNext      bool       `json:"has_next"`
	HasPrevious  bool       `json:"has_previous"`
	Sync         SyncHealth `json:"sync"`
	Subscribers  int        `json:"subscribers"`
	StartedAt    string     `json:"started_at,omitempty"`
}

// ActionResponse is returned by procedures that change the player.
// Success is false when the audio engine rejected the command; the queue
// change itself still applies.
type ActionResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Status  *StatusResponse `json:"status"`
}

// QueueRequest selects the queue view.
type QueueRequest struct {
	PlayOrder bool `json:"play_order"`
}

// QueueItem is one queue row.
type QueueItem struct {
	Index          int       `json:"index"`
	Track          TrackInfo `json:"track"`
	IsCurrentTrack bool      `json:"is_current_track"`
	IsUpcoming     bool      `json:"is_upcoming"`
}

// QueueResponse lists the queue.
type QueueResponse struct {
	Items        []QueueItem `json:"items"`
	CurrentIndex int         `json:"current_index"`
	Upcoming     []TrackInfo `json:"upcoming"`
}

// PersistedQueueResponse is the queue as the backend stores it.
type PersistedQueueResponse struct {
	Items        []TrackInfo `json:"items"`
	CurrentIndex int         `json:"current_index"`
	Shuffle      bool        `json:"shuffle"`
	Loop         string      `json:"loop"`
}

// AddRequest appends files or directories.
type AddRequest struct {
	Paths           []string `json:"paths"`
	PlayImmediately bool     `json:"play_immediately"`
}

// InsertRequest splices files or directories before Index.
type InsertRequest struct {
	Index int      `json:"index"`
	Paths []string `json:"paths"`
}

// ReplaceRequest replaces the queue and starts at StartIndex.
type ReplaceRequest struct {
	Paths      []string `json:"paths"`
	StartIndex int      `json:"start_index"`
}

// AddResponse reports how many tracks were queued.
type AddResponse struct {
	Added   int             `json:"added"`
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Status  *StatusResponse `json:"status"`
}

// IndexRequest addresses one queue entry.
type IndexRequest struct {
	Index int `json:"index"`
}

// MoveRequest moves the entry at From to To.
type MoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// SeekRequest moves within the current track.
type SeekRequest struct {
	PositionMs int64 `json:"position_ms"`
}

// VolumeRequest sets the output volume.
type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

// ShuffleRequest sets shuffle. A nil On toggles.
type ShuffleRequest struct {
	On *bool `json:"on,omitempty"`
}

// LoopRequest sets the loop mode. An empty Mode cycles none, all, one.
type LoopRequest struct {
	Mode string `json:"mode,omitempty"`
}

func newStatusResponse(s *session.Status) *StatusResponse {
	p := s.Playback
	resp := &StatusResponse{
		State:        p.State.String(),
		Track:        notification.NewTrackInfo(p.Track),
		CurrentIndex: p.CurrentIndex,
		Length:       p.Length,
		Shuffle:      p.Shuffle,
		Loop:         p.Loop.String(),
		RepeatPhase:  p.RepeatPhase.String(),
		PositionMs:   p.Position.Milliseconds(),
		DurationMs:   p.Duration.Milliseconds(),
		Volume:       p.Volume,
		HasNext:      p.HasNext,
		HasPrevious:  p.HasPrevious,
		Sync: SyncHealth{
			Healthy: s.Sync.Healthy(),
			Pending: s.Sync.Pending,
			Applied: s.Sync.Applied,
			Failed:  s.Sync.Failed,
		},
		Subscribers: s.Subscribers,
	}
	if !s.StartedAt.IsZero() {
		resp.StartedAt = s.StartedAt.Format(time.RFC3339)
	}
	if s.Sync.LastError != "" {
		resp.Sync.LastError = s.Sync.LastError
		resp.Sync.LastErrorAt = s.Sync.LastErrorAt.Format(time.RFC3339)
	}
	return resp
}

func newTrackInfos(tracks []track.Track) []TrackInfo {
	return lo.Map(tracks, func(t track.Track, _ int) TrackInfo {
		return *notification.NewTrackInfo(&t)
	})
}

func newQueueItem(item queue.PlayOrderItem) QueueItem {
	return QueueItem{
		Index:          item.Index,
		Track:          *notification.NewTrackInfo(&item.Track),
		IsCurrentTrack: item.IsCurrentTrack,
		IsUpcoming:     item.IsUpcoming,
	}
}

func newPersistedQueueResponse(snap store.Snapshot) *PersistedQueueResponse {
	return &PersistedQueueResponse{
		Items:        newTrackInfos(snap.Items),
		CurrentIndex: snap.CurrentIndex,
		Shuffle:      snap.Shuffle,
		Loop:         snap.Loop.String(),
	}
}
