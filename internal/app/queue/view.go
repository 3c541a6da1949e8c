package queue

import (
	"github.com/osa030/19deck/internal/domain/playmode"
	"github.com/osa030/19deck/internal/domain/track"
)

// PlayOrderItem is one row of the play-order view.
type PlayOrderItem struct {
	Index          int // Position in the queue
	Track          track.Track
	IsCurrentTrack bool
	IsUpcoming     bool
}

// PlayOrderItems lists what plays from now on: the active entry, then the
// rest of the queue, then (with loop all) the entries before the active one.
// With nothing active the whole queue is upcoming.
func (q *Queue) PlayOrderItems() []PlayOrderItem {
	n := len(q.items)
	if n == 0 {
		return []PlayOrderItem{}
	}

	start := q.current
	if start < 0 {
		start = 0
	}
	out := make([]PlayOrderItem, 0, n)
	for i := start; i < n; i++ {
		out = append(out, q.viewItem(i))
	}
	if q.loop == playmode.LoopAll {
		for i := 0; i < start; i++ {
			out = append(out, q.viewItem(i))
		}
	}
	return out
}

// UpcomingTracks returns the tracks of the play-order view after the active one.
func (q *Queue) UpcomingTracks() []track.Track {
	var out []track.Track
	for _, it := range q.PlayOrderItems() {
		if it.IsUpcoming {
			out = append(out, it.Track)
		}
	}
	return out
}

func (q *Queue) viewItem(i int) PlayOrderItem {
	isCurrent := i == q.current
	return PlayOrderItem{
		Index:          i,
		Track:          q.items[i].Track,
		IsCurrentTrack: isCurrent,
		IsUpcoming:     !isCurrent,
	}
}
