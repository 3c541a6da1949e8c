package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19deck/internal/domain/track"
)

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name          string
		minSeconds    float64
		maxSeconds    float64
		trackDuration time.Duration
		shouldReject  bool
	}{
		{name: "within limits", minSeconds: 30, maxSeconds: 600, trackDuration: 3 * time.Minute},
		{name: "too short", minSeconds: 30, trackDuration: 10 * time.Second, shouldReject: true},
		{name: "too long", maxSeconds: 600, trackDuration: 11 * time.Minute, shouldReject: true},
		{name: "exact min", minSeconds: 30, trackDuration: 30 * time.Second},
		{name: "exact max", maxSeconds: 600, trackDuration: 10 * time.Minute},
		{name: "unknown duration", minSeconds: 30, maxSeconds: 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			require.NoError(t, f.ValidateConfig(map[string]any{
				"min_seconds": tt.minSeconds,
				"max_seconds": tt.maxSeconds,
			}))

			result := f.Check(context.Background(), track.Track{Duration: tt.trackDuration}, nil, nil)

			if tt.shouldReject {
				assert.False(t, result.Accepted)
				assert.Equal(t, "duration_limit_exceeded", result.Code)
			} else {
				assert.True(t, result.Accepted)
			}
		})
	}
}

func TestDurationLimitFilter_Unconfigured(t *testing.T) {
	f := NewDurationLimitFilter()
	assert.True(t, f.Check(context.Background(), track.Track{Duration: time.Second}, nil, nil).Accepted)
}

func TestDurationLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{name: "valid floats", settings: map[string]any{"min_seconds": 2.5, "max_seconds": 300.0}},
		{name: "valid integers", settings: map[string]any{"min_seconds": 2, "max_seconds": 300}},
		{name: "min greater than max", settings: map[string]any{"min_seconds": 10, "max_seconds": 5}, wantErr: true},
		{name: "negative min", settings: map[string]any{"min_seconds": -1}, wantErr: true},
		{name: "negative max", settings: map[string]any{"max_seconds": -1}, wantErr: true},
		{name: "min only", settings: map[string]any{"min_seconds": 60}},
		{name: "empty settings", settings: map[string]any{}},
		{name: "nil settings", settings: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			err := f.ValidateConfig(tt.settings)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, f.config)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, f.config)
			}
		})
	}
}

func TestDuplicateTrackFilter_Check(t *testing.T) {
	queued := []track.Track{
		{ID: "q1", Title: "Bohemian Rhapsody", Artist: "Queen", FilePath: "/m/q1.mp3"},
		{ID: "q2", FilePath: "/m/untagged.mp3"},
	}
	f := NewDuplicateTrackFilter()

	tests := []struct {
		name     string
		track    track.Track
		accepted bool
	}{
		{name: "same file", track: track.Track{ID: "q1"}},
		{name: "remaster", track: track.Track{ID: "x1", Title: "Bohemian Rhapsody - 2011 Remaster", Artist: "queen"}},
		{name: "bracketed remaster", track: track.Track{ID: "x2", Title: "Bohemian Rhapsody (Remastered 2023)", Artist: "Queen"}},
		{name: "radio edit", track: track.Track{ID: "x3", Title: "Bohemian Rhapsody (Radio Edit)", Artist: "Queen"}},
		{name: "cover", track: track.Track{ID: "x4", Title: "Bohemian Rhapsody", Artist: "Panic! at the Disco"}, accepted: true},
		{name: "different song", track: track.Track{ID: "x5", Title: "Somebody to Love", Artist: "Queen"}, accepted: true},
		{name: "untagged", track: track.Track{ID: "x6", FilePath: "/m/other.mp3"}, accepted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Check(context.Background(), tt.track, queued, nil)
			assert.Equal(t, tt.accepted, result.Accepted)
			if !tt.accepted {
				assert.Equal(t, "duplicate_track", result.Code)
			}
		})
	}
}

func TestDuplicateTrackFilter_Pending(t *testing.T) {
	f := NewDuplicateTrackFilter()
	pending := []track.Track{{ID: "a"}}

	assert.False(t, f.Check(context.Background(), track.Track{ID: "a"}, nil, pending).Accepted)
	assert.True(t, f.Check(context.Background(), track.Track{ID: "b"}, nil, pending).Accepted)
}

func TestChain_Admit(t *testing.T) {
	limit := NewDurationLimitFilter()
	require.NoError(t, limit.ValidateConfig(map[string]any{"max_seconds": 60}))

	chain := NewChain()
	chain.Add(NewDuplicateTrackFilter())
	chain.Add(limit)

	tracks := []track.Track{
		{ID: "a", Duration: 30 * time.Second},
		{ID: "queued", Duration: 30 * time.Second},
		{ID: "long", Duration: 2 * time.Minute},
		{ID: "a", Duration: 30 * time.Second},
		{ID: "b"},
	}

	admitted, rejected := chain.Admit(context.Background(), []track.Track{{ID: "queued"}}, tracks)

	assert.Equal(t, []string{"a", "b"}, track.IDs(admitted))
	require.Len(t, rejected, 3)
	assert.Equal(t, "queued", rejected[0].Track.ID)
	assert.Equal(t, "duplicate_track_filter", rejected[0].Result.Filter)
	assert.Equal(t, "long", rejected[1].Track.ID)
	assert.Equal(t, "duration_limit_exceeded", rejected[1].Result.Code)
	assert.Equal(t, "duration_limit_filter", rejected[1].Result.Filter)
	assert.Equal(t, "a", rejected[2].Track.ID)
}

func TestChain_Empty(t *testing.T) {
	tracks := []track.Track{{ID: "a"}, {ID: "a"}}
	admitted, rejected := NewChain().Admit(context.Background(), nil, tracks)
	assert.Equal(t, tracks, admitted)
	assert.Empty(t, rejected)
}

func TestChain_AdmitWithoutQueue(t *testing.T) {
	chain := NewChain()
	chain.Add(NewDuplicateTrackFilter())

	tracks := []track.Track{{ID: "a"}, {ID: "b"}, {ID: "a"}}
	admitted, rejected := chain.Admit(context.Background(), nil, tracks)

	assert.Equal(t, []string{"a", "b"}, track.IDs(admitted))
	require.Len(t, rejected, 1)
	assert.Equal(t, "a", rejected[0].Track.ID)
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"duration_limit_filter", "duplicate_track_filter"} {
		factory, ok := GetRegistered()[name]
		require.True(t, ok, name)
		assert.Equal(t, name, factory().Name())
	}
}
