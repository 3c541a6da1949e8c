package filter

import (
	"context"

	"github.com/osa030/19deck/internal/domain/track"
)

// Rejection records a track refused by the chain.
type Rejection struct {
	Track  track.Track
	Result Result
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, t track.Track, queued, pending []track.Track) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, t, queued, pending)
		if !result.Accepted {
			result.Filter = f.Name()
			return result
		}
	}
	return Accept()
}

// Admit runs the chain over a batch and splits it into admitted tracks, in
// input order, and rejections. queued is the queue the batch joins; it is
// empty when the batch replaces the queue.
func (c *Chain) Admit(ctx context.Context, queued, tracks []track.Track) ([]track.Track, []Rejection) {
	if len(c.filters) == 0 {
		return tracks, nil
	}

	admitted := make([]track.Track, 0, len(tracks))
	var rejected []Rejection
	for _, t := range tracks {
		result := c.Execute(ctx, t, queued, admitted)
		if !result.Accepted {
			rejected = append(rejected, Rejection{Track: t, Result: result})
			continue
		}
		admitted = append(admitted, t)
	}
	return admitted, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
