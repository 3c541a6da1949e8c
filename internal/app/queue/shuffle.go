package queue

// SetShuffle turns shuffle on or off and reports whether the mode changed.
//
// Turning shuffle on snapshots the current order, shuffles every entry except
// the active one and moves the active entry to index 0. Turning it off
// restores the snapshot and relocates the active entry. Both clear the
// navigation history.
func (q *Queue) SetShuffle(on bool) bool {
	if on == q.shuffle {
		return false
	}
	q.shuffle = on
	q.history.Clear()

	if on {
		q.captureOriginal()
		q.shufflePinned()
		return true
	}

	var active *Entry
	if q.current >= 0 && q.current < len(q.items) {
		e := q.items[q.current]
		active = &e
	}

	q.items = make([]Entry, len(q.original))
	copy(q.items, q.original)
	q.captureOriginal()

	switch {
	case len(q.items) == 0:
		q.current = -1
	case active == nil:
		q.current = -1
	default:
		q.current = q.locate(*active)
	}
	return true
}

// Reshuffle applies a fresh Fisher-Yates pass over every entry, used when a
// shuffled queue wraps around. Nothing is pinned to index 0; instead the
// entry with key avoid, the track that just ended, is kept away from it so a
// new cycle never starts by repeating that track. The caller plays index 0.
func (q *Queue) Reshuffle(avoid uint64) {
	q.history.Clear()
	fisherYates(q.items, q.rng.IntN)

	n := len(q.items)
	if n > 1 && q.items[0].Key == avoid {
		j := 1 + q.rng.IntN(n-1)
		q.items[0], q.items[j] = q.items[j], q.items[0]
	}
}

// ActiveKey returns the entry key of the active entry, or 0.
func (q *Queue) ActiveKey() uint64 {
	if q.current < 0 || q.current >= len(q.items) {
		return 0
	}
	return q.items[q.current].Key
}

// shufflePinned shuffles all entries except the active one, which is placed
// first.
func (q *Queue) shufflePinned() {
	if q.current < 0 || q.current >= len(q.items) {
		fisherYates(q.items, q.rng.IntN)
		return
	}

	active := q.items[q.current]
	rest := make([]Entry, 0, len(q.items)-1)
	rest = append(rest, q.items[:q.current]...)
	rest = append(rest, q.items[q.current+1:]...)
	fisherYates(rest, q.rng.IntN)

	q.items = append([]Entry{active}, rest...)
	q.current = 0
}

// locate finds e in the current order by entry key, then by track id.
// Falls back to 0.
func (q *Queue) locate(e Entry) int {
	for i, it := range q.items {
		if it.Key == e.Key {
			return i
		}
	}
	for i, it := range q.items {
		if it.Track.ID == e.Track.ID {
			return i
		}
	}
	return 0
}

// fisherYates shuffles s in place. intn(n) must return a uniform value in [0, n).
func fisherYates[T any](s []T, intn func(int) int) {
	for i := len(s) - 1; i > 0; i-- {
		j := intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
