package queue

// History is a bounded stack of previously active indices used by backward
// navigation. When full, the oldest entry is discarded.
type History struct {
	stack    []int
	capacity int
}

// NewHistory creates a history holding at most capacity indices.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		stack:    make([]int, 0, capacity),
		capacity: capacity,
	}
}

// Push records index i as the most recent entry.
func (h *History) Push(i int) {
	if i < 0 {
		return
	}
	h.stack = append(h.stack, i)
	if len(h.stack) > h.capacity {
		excess := len(h.stack) - h.capacity
		h.stack = append(h.stack[:0], h.stack[excess:]...)
	}
}

// Pop removes and returns the most recent index below limit. Entries at or
// above limit are discarded on the way.
func (h *History) Pop(limit int) (int, bool) {
	for len(h.stack) > 0 {
		last := len(h.stack) - 1
		i := h.stack[last]
		h.stack = h.stack[:last]
		if i < limit {
			return i, true
		}
	}
	return -1, false
}

// Len returns the number of recorded indices.
func (h *History) Len() int {
	return len(h.stack)
}

// Capacity returns the maximum number of recorded indices.
func (h *History) Capacity() int {
	return h.capacity
}

// Clear drops every entry.
func (h *History) Clear() {
	h.stack = h.stack[:0]
}

// Indices returns a copy of the stack, oldest first.
func (h *History) Indices() []int {
	out := make([]int, len(h.stack))
	copy(out, h.stack)
	return out
}

// remap rewrites every entry through fn, dropping entries for which fn
// returns false.
func (h *History) remap(fn func(int) (int, bool)) {
	kept := h.stack[:0]
	for _, i := range h.stack {
		if j, ok := fn(i); ok {
			kept = append(kept, j)
		}
	}
	h.stack = kept
}
