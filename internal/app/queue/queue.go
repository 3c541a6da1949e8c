// Package queue provides the in-memory queue state of the player: the ordered
// play sequence, the active index, the sequencing modes and the navigation
// history.
//
// A Queue is not safe for concurrent use. It is owned by a single
// playback.Controller which serializes every access.
package queue

import (
	"math/rand/v2"
	"time"

	"github.com/samber/lo"

	"github.com/osa030/19deck/internal/domain/playmode"
	"github.com/osa030/19deck/internal/domain/track"
)

// DefaultHistoryCapacity is the navigation history size used when none is given.
const DefaultHistoryCapacity = 100

// Entry is a queued track. Key is unique within the queue and tells apart
// duplicates of the same track.
type Entry struct {
	Key   uint64
	Track track.Track
}

// Queue holds the play sequence and the index of the active entry.
type Queue struct {
	items   []Entry
	current int // -1 when nothing is active

	shuffle  bool
	loop     playmode.LoopMode
	original []Entry // Pre-shuffle order

	history *History
	rng     *rand.Rand
	nextKey uint64
}

// Option configures a Queue.
type Option func(*Queue)

// WithRand sets the random source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(q *Queue) {
		q.rng = r
	}
}

// WithHistoryCapacity sets the navigation history capacity.
func WithHistoryCapacity(n int) Option {
	return func(q *Queue) {
		q.history = NewHistory(n)
	}
}

// New creates an empty queue with shuffle off and loop none.
func New(opts ...Option) *Queue {
	seed := uint64(time.Now().UnixNano())
	q := &Queue{
		current: -1,
		loop:    playmode.LoopNone,
		history: NewHistory(DefaultHistoryCapacity),
		rng:     rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return len(q.items)
}

// CurrentIndex returns the active index, or -1.
func (q *Queue) CurrentIndex() int {
	return q.current
}

// Current returns the active track.
func (q *Queue) Current() (track.Track, bool) {
	if q.current < 0 || q.current >= len(q.items) {
		return track.Track{}, false
	}
	return q.items[q.current].Track, true
}

// At returns the track at index i.
func (q *Queue) At(i int) (track.Track, bool) {
	if !q.valid(i) {
		return track.Track{}, false
	}
	return q.items[i].Track, true
}

// Items returns a copy of the queued tracks in play order.
func (q *Queue) Items() []track.Track {
	return lo.Map(q.items, func(e Entry, _ int) track.Track { return e.Track })
}

// Entries returns a copy of the queued entries in play order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.items))
	copy(out, q.items)
	return out
}

// History returns the navigation history.
func (q *Queue) History() *History {
	return q.history
}

// SetCurrent makes index i active. Out-of-range indices are ignored.
func (q *Queue) SetCurrent(i int) bool {
	if !q.valid(i) {
		return false
	}
	q.current = i
	return true
}

// Add appends tracks at the tail and returns the index of the first appended
// entry, or -1 when tracks is empty.
func (q *Queue) Add(tracks []track.Track) int {
	if len(tracks) == 0 {
		return -1
	}
	first := len(q.items)
	added := q.newEntries(tracks)
	q.items = append(q.items, added...)

	if q.shuffle {
		q.original = append(q.original, added...)
	} else {
		q.captureOriginal()
	}
	return first
}

// Insert splices tracks at index and returns the number of inserted entries.
// index may equal Len to append. The active entry stays active.
func (q *Queue) Insert(index int, tracks []track.Track) int {
	if index < 0 || index > len(q.items) || len(tracks) == 0 {
		return 0
	}
	added := q.newEntries(tracks)
	n := len(added)

	items := make([]Entry, 0, len(q.items)+n)
	items = append(items, q.items[:index]...)
	items = append(items, added...)
	items = append(items, q.items[index:]...)
	q.items = items

	shift := func(i int) (int, bool) {
		if i >= index {
			return i + n, true
		}
		return i, true
	}
	if q.current >= 0 {
		q.current, _ = shift(q.current)
	}
	q.history.remap(shift)

	if q.shuffle {
		q.original = append(q.original, added...)
	} else {
		q.captureOriginal()
	}
	return n
}

// RemoveResult describes the effect of Remove.
type RemoveResult struct {
	Removed    bool
	WasCurrent bool // The removed entry was the active one
	Emptied    bool // The queue is empty afterwards
	Track      track.Track
}

// Remove deletes the entry at index. Out-of-range indices are a no-op.
func (q *Queue) Remove(index int) RemoveResult {
	if !q.valid(index) {
		return RemoveResult{}
	}
	removed := q.items[index]
	q.items = append(q.items[:index:index], q.items[index+1:]...)

	res := RemoveResult{
		Removed:    true,
		WasCurrent: index == q.current,
		Track:      removed.Track,
	}

	switch {
	case len(q.items) == 0:
		q.current = -1
	case index < q.current:
		q.current--
	case index == q.current && q.current >= len(q.items):
		q.current = len(q.items) - 1
	}
	res.Emptied = len(q.items) == 0

	q.history.remap(func(i int) (int, bool) {
		switch {
		case i == index:
			return 0, false
		case i > index:
			return i - 1, true
		default:
			return i, true
		}
	})

	if q.shuffle {
		q.original = lo.Reject(q.original, func(e Entry, _ int) bool { return e.Key == removed.Key })
	} else {
		q.captureOriginal()
	}
	return res
}

// Reorder moves the entry at from so that it ends up at index to.
// Returns false when either index is out of range or they are equal.
func (q *Queue) Reorder(from, to int) bool {
	if !q.valid(from) || !q.valid(to) || from == to {
		return false
	}
	moved := q.items[from]
	rest := append(q.items[:from:from], q.items[from+1:]...)

	items := make([]Entry, 0, len(q.items))
	items = append(items, rest[:to]...)
	items = append(items, moved)
	items = append(items, rest[to:]...)
	q.items = items

	move := func(i int) (int, bool) {
		switch {
		case i == from:
			return to, true
		case from < i && i <= to:
			return i - 1, true
		case to <= i && i < from:
			return i + 1, true
		default:
			return i, true
		}
	}
	if q.current >= 0 {
		q.current, _ = move(q.current)
	}
	q.history.remap(move)

	if !q.shuffle {
		q.captureOriginal()
	}
	return true
}

// Clear empties the queue and the navigation history.
func (q *Queue) Clear() {
	q.items = nil
	q.original = nil
	q.current = -1
	q.history.Clear()
}

// Shuffle reports whether shuffle is on.
func (q *Queue) Shuffle() bool {
	return q.shuffle
}

// Loop returns the loop mode.
func (q *Queue) Loop() playmode.LoopMode {
	return q.loop
}

// SetLoop sets the loop mode.
func (q *Queue) SetLoop(m playmode.LoopMode) {
	q.loop = m
}

// HasNext reports whether a forward navigation would reach a track.
func (q *Queue) HasNext() bool {
	if len(q.items) == 0 {
		return false
	}
	if q.loop == playmode.LoopAll {
		return true
	}
	if q.loop == playmode.LoopOne && q.current >= 0 {
		return true
	}
	return q.current+1 < len(q.items)
}

// HasPrevious reports whether a backward navigation would reach another track.
func (q *Queue) HasPrevious() bool {
	if len(q.items) == 0 {
		return false
	}
	if q.loop == playmode.LoopAll {
		return true
	}
	return q.history.Len() > 0 || q.current > 0
}

func (q *Queue) valid(i int) bool {
	return i >= 0 && i < len(q.items)
}

func (q *Queue) newEntries(tracks []track.Track) []Entry {
	out := make([]Entry, len(tracks))
	for i, t := range tracks {
		q.nextKey++
		out[i] = Entry{Key: q.nextKey, Track: t}
	}
	return out
}

func (q *Queue) captureOriginal() {
	q.original = make([]Entry, len(q.items))
	copy(q.original, q.items)
}
