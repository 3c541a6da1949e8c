package playback

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19deck/internal/domain/playmode"
	"github.com/osa030/19deck/internal/domain/track"
	"github.com/osa030/19deck/internal/infra/audio"
)

type fakeAudio struct {
	mu       sync.Mutex
	calls    []string
	failLoad map[string]error
	events   chan audio.Event
	gen      uint64
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{
		failLoad: map[string]error{},
		events:   make(chan audio.Event, 8),
	}
}

func (f *fakeAudio) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAudio) Load(path string) (audio.Loaded, error) {
	f.record("load " + path)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	if err := f.failLoad[path]; err != nil {
		return audio.Loaded{}, err
	}
	return audio.Loaded{Duration: 3 * time.Minute, Generation: f.gen}, nil
}

// Generation returns the generation of the most recent load.
func (f *fakeAudio) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

func (f *fakeAudio) Play() error  { f.record("play"); return nil }
func (f *fakeAudio) Pause() error { f.record("pause"); return nil }
func (f *fakeAudio) Stop() error  { f.record("stop"); return nil }

func (f *fakeAudio) Seek(position time.Duration) error {
	f.record("seek " + position.String())
	return nil
}

func (f *fakeAudio) SetVolume(volume float64) error {
	f.record(fmt.Sprintf("volume %.2f", volume))
	return nil
}

func (f *fakeAudio) Events() <-chan audio.Event { return f.events }

func (f *fakeAudio) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAudio) LastCall() string {
	calls := f.Calls()
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1]
}

func (f *fakeAudio) Count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAudio) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type fakePersister struct {
	mu  sync.Mutex
	ops []string
}

func (p *fakePersister) record(op string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, op)
}

func (p *fakePersister) Add(ids []string, position *int) {
	if position != nil {
		p.record(fmt.Sprintf("add@%d %s", *position, strings.Join(ids, ",")))
		return
	}
	p.record("add " + strings.Join(ids, ","))
}
func (p *fakePersister) Remove(position int)            { p.record(fmt.Sprintf("remove %d", position)) }
func (p *fakePersister) Move(from, to int)              { p.record(fmt.Sprintf("move %d %d", from, to)) }
func (p *fakePersister) Clear()                         { p.record("clear") }
func (p *fakePersister) SetCurrentIndex(i int)          { p.record(fmt.Sprintf("index %d", i)) }
func (p *fakePersister) SetShuffle(on bool)             { p.record(fmt.Sprintf("shuffle %t", on)) }
func (p *fakePersister) SetLoop(mode playmode.LoopMode) { p.record("loop " + mode.String()) }
func (p *fakePersister) Replace(ids []string, current int) {
	p.record(fmt.Sprintf("replace %s @%d", strings.Join(ids, ","), current))
}

func (p *fakePersister) Ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func (p *fakePersister) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = nil
}

func tracks(ids ...string) []track.Track {
	out := make([]track.Track, len(ids))
	for i, id := range ids {
		out[i] = track.Track{ID: id, Title: strings.ToUpper(id), FilePath: id + ".mp3"}
	}
	return out
}

func newTestController(t *testing.T, ids ...string) (*Controller, *fakeAudio, *fakePersister) {
	t.Helper()
	a := newFakeAudio()
	p := &fakePersister{}
	c := NewController(a, p, Config{Rand: rand.New(rand.NewPCG(1, 2))})
	if len(ids) > 0 {
		require.NoError(t, c.Add(tracks(ids...), true))
	}
	a.Reset()
	p.Reset()
	return c, a, p
}

func currentID(t *testing.T, c *Controller) string {
	t.Helper()
	cur, ok := c.CurrentTrack()
	require.True(t, ok)
	return cur.ID
}

func drainEvents(c *Controller) []Event {
	var out []Event
	for {
		select {
		case e := <-c.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestController_PlayNext_StopsAtEnd(t *testing.T) {
	c, a, _ := newTestController(t, "t1", "t2", "t3")

	require.NoError(t, c.PlayNext())
	assert.Equal(t, "t2", currentID(t, c))
	require.NoError(t, c.PlayNext())
	assert.Equal(t, "t3", currentID(t, c))

	require.NoError(t, c.PlayNext())
	assert.Equal(t, 2, c.CurrentIndex())
	assert.Equal(t, "pause", a.LastCall())
	assert.Equal(t, StateStopped, c.GetState())
	assert.False(t, c.HasNext())
}

func TestController_PlayNext_LoopAllWraps(t *testing.T) {
	c, _, _ := newTestController(t, "t1", "t2", "t3")
	c.SetLoop(playmode.LoopAll)

	require.NoError(t, c.PlayNext())
	require.NoError(t, c.PlayNext())
	require.NoError(t, c.PlayNext())

	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, "t1", currentID(t, c))
	assert.Equal(t, StatePlaying, c.GetState())
}

func TestController_RepeatOne_SingleTrack(t *testing.T) {
	c, a, p := newTestController(t, "t1")
	c.SetLoop(playmode.LoopOne)
	p.Reset()

	require.NoError(t, c.PlayNext())
	assert.Equal(t, 1, a.Count("load t1.mp3"))
	assert.Equal(t, RepeatOnePending, c.Status().RepeatPhase)
	assert.Equal(t, playmode.LoopOne, c.Status().Loop)

	require.NoError(t, c.PlayNext())
	st := c.Status()
	assert.Equal(t, playmode.LoopNone, st.Loop)
	assert.Equal(t, RepeatIdle, st.RepeatPhase)
	assert.Equal(t, 0, st.CurrentIndex)
	assert.Equal(t, StateStopped, st.State)
	assert.Contains(t, p.Ops(), "loop none")

	require.NoError(t, c.PlayNext())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, StateStopped, c.GetState())
	assert.Equal(t, 1, a.Count("load t1.mp3"))
}

func TestController_RepeatOne_ThenAdvances(t *testing.T) {
	c, a, _ := newTestController(t, "a", "b", "c")
	c.SetLoop(playmode.LoopOne)

	require.NoError(t, c.PlayNext())
	assert.Equal(t, "a", currentID(t, c))
	assert.Equal(t, 1, a.Count("load a.mp3"))

	require.NoError(t, c.PlayNext())
	assert.Equal(t, "b", currentID(t, c))
	assert.Equal(t, playmode.LoopNone, c.Status().Loop)
}

func TestController_SetLoopResetsRepeatPhase(t *testing.T) {
	c, _, _ := newTestController(t, "a", "b")
	c.SetLoop(playmode.LoopOne)
	require.NoError(t, c.PlayNext())
	require.Equal(t, RepeatOnePending, c.Status().RepeatPhase)

	c.SetLoop(playmode.LoopOne)

	assert.Equal(t, RepeatIdle, c.Status().RepeatPhase)
}

func TestController_RemoveOnlyTrack(t *testing.T) {
	c, a, p := newTestController(t, "t1")

	require.NoError(t, c.Remove(0))

	st := c.Status()
	assert.Equal(t, 0, st.Length)
	assert.Equal(t, -1, st.CurrentIndex)
	assert.Nil(t, st.Track)
	assert.Equal(t, StateStopped, st.State)
	assert.Contains(t, a.Calls(), "stop")
	assert.Equal(t, []string{"remove 0", "index -1"}, p.Ops())
}

func TestController_RemoveActive(t *testing.T) {
	t.Run("playing moves to the next entry", func(t *testing.T) {
		c, a, _ := newTestController(t, "a", "b", "c")
		require.NoError(t, c.PlayIndex(1))
		a.Reset()

		require.NoError(t, c.Remove(1))

		assert.Equal(t, "c", currentID(t, c))
		assert.Equal(t, []string{"load c.mp3", "play"}, a.Calls())
		assert.Equal(t, StatePlaying, c.GetState())
	})

	t.Run("paused stops", func(t *testing.T) {
		c, a, _ := newTestController(t, "a", "b", "c")
		require.NoError(t, c.Pause())
		a.Reset()

		require.NoError(t, c.Remove(0))

		assert.Equal(t, "b", currentID(t, c))
		assert.Equal(t, []string{"stop"}, a.Calls())
		assert.Equal(t, StateStopped, c.GetState())
	})

	t.Run("removed tail clamps", func(t *testing.T) {
		c, _, _ := newTestController(t, "a", "b", "c")
		require.NoError(t, c.PlayIndex(2))

		require.NoError(t, c.Remove(2))

		assert.Equal(t, "b", currentID(t, c))
	})
}

func TestController_RemoveBeforeCurrentPersistsShift(t *testing.T) {
	c, a, p := newTestController(t, "a", "b", "c")
	require.NoError(t, c.PlayIndex(2))
	a.Reset()
	p.Reset()

	require.NoError(t, c.Remove(0))

	assert.Equal(t, "c", currentID(t, c))
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Empty(t, a.Calls())
	assert.Equal(t, []string{"remove 0", "index 1"}, p.Ops())
}

func TestController_PlayPrevious(t *testing.T) {
	t.Run("restarts past threshold", func(t *testing.T) {
		c, a, _ := newTestController(t, "a", "b", "c")
		require.NoError(t, c.PlayNext())
		c.handleAudioEvent(audio.Event{Type: audio.EventProgress, Generation: a.Generation(), Position: 5 * time.Second})
		a.Reset()

		require.NoError(t, c.PlayPrevious())

		assert.Equal(t, "b", currentID(t, c))
		assert.Equal(t, []string{"seek 0s"}, a.Calls())
		assert.Equal(t, time.Duration(0), c.Status().Position)
	})

	t.Run("exactly at threshold navigates", func(t *testing.T) {
		c, a, _ := newTestController(t, "a", "b", "c")
		require.NoError(t, c.PlayNext())
		c.handleAudioEvent(audio.Event{Type: audio.EventProgress, Generation: a.Generation(), Position: 3 * time.Second})

		require.NoError(t, c.PlayPrevious())

		assert.Equal(t, "a", currentID(t, c))
	})

	t.Run("follows history", func(t *testing.T) {
		c, _, _ := newTestController(t, "a", "b", "c", "d")
		require.NoError(t, c.PlayNext())
		require.NoError(t, c.PlayNext())

		require.NoError(t, c.PlayPrevious())
		assert.Equal(t, "b", currentID(t, c))
		require.NoError(t, c.PlayPrevious())
		assert.Equal(t, "a", currentID(t, c))
	})

	t.Run("manual jump clears history", func(t *testing.T) {
		c, _, _ := newTestController(t, "a", "b", "c", "d")
		require.NoError(t, c.PlayNext())
		require.NoError(t, c.PlayIndex(3))

		require.NoError(t, c.PlayPrevious())

		assert.Equal(t, "c", currentID(t, c))
	})

	t.Run("clamps at first entry", func(t *testing.T) {
		c, _, _ := newTestController(t, "a", "b", "c")

		require.NoError(t, c.PlayPrevious())

		assert.Equal(t, 0, c.CurrentIndex())
	})

	t.Run("wraps with loop all", func(t *testing.T) {
		c, _, _ := newTestController(t, "a", "b", "c")
		c.SetLoop(playmode.LoopAll)

		require.NoError(t, c.PlayPrevious())

		assert.Equal(t, "c", currentID(t, c))
	})
}

func TestController_SkipEscapesRepeatOne(t *testing.T) {
	t.Run("next", func(t *testing.T) {
		c, _, p := newTestController(t, "a", "b", "c")
		c.SetLoop(playmode.LoopOne)
		p.Reset()

		require.NoError(t, c.SkipNext())

		assert.Equal(t, "b", currentID(t, c))
		assert.Equal(t, playmode.LoopAll, c.Status().Loop)
		assert.Equal(t, RepeatIdle, c.Status().RepeatPhase)
		assert.Contains(t, p.Ops(), "loop all")
	})

	t.Run("next after a pending replay", func(t *testing.T) {
		c, _, _ := newTestController(t, "a", "b")
		c.SetLoop(playmode.LoopOne)
		require.NoError(t, c.PlayNext())

		require.NoError(t, c.SkipNext())

		assert.Equal(t, "b", currentID(t, c))
		assert.Equal(t, RepeatIdle, c.Status().RepeatPhase)
	})

	t.Run("previous wraps under the new loop all", func(t *testing.T) {
		c, _, _ := newTestController(t, "a", "b", "c")
		c.SetLoop(playmode.LoopOne)

		require.NoError(t, c.SkipPrevious())

		assert.Equal(t, "c", currentID(t, c))
		assert.Equal(t, playmode.LoopAll, c.Status().Loop)
	})
}

func TestController_SkipNextRecordsHistory(t *testing.T) {
	c, _, _ := newTestController(t, "a", "b", "c")

	require.NoError(t, c.SkipNext())
	require.NoError(t, c.SkipNext())
	require.NoError(t, c.SkipPrevious())

	assert.Equal(t, "b", currentID(t, c))
}

func TestController_EmptyQueueIsNoop(t *testing.T) {
	c, a, p := newTestController(t)

	assert.NoError(t, c.PlayIndex(0))
	assert.NoError(t, c.PlayNext())
	assert.NoError(t, c.PlayPrevious())
	assert.NoError(t, c.SkipNext())
	assert.NoError(t, c.SkipPrevious())
	assert.NoError(t, c.Remove(0))
	assert.NoError(t, c.Add(nil, true))
	c.Reorder(0, 1)
	c.Clear()

	assert.Empty(t, a.Calls())
	assert.Empty(t, p.Ops())
	assert.Equal(t, -1, c.CurrentIndex())
}

func TestController_OutOfRangeIsNoop(t *testing.T) {
	c, a, p := newTestController(t, "a", "b")

	assert.NoError(t, c.PlayIndex(2))
	assert.NoError(t, c.PlayIndex(-1))
	assert.NoError(t, c.Remove(5))
	c.Reorder(0, 9)
	assert.Zero(t, c.Insert(7, tracks("x")))
	assert.Zero(t, c.Insert(0, nil))

	assert.Empty(t, a.Calls())
	assert.Empty(t, p.Ops())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, 2, c.Status().Length)
}

func TestController_Add(t *testing.T) {
	t.Run("without play leaves nothing active", func(t *testing.T) {
		c, a, p := newTestController(t)

		require.NoError(t, c.Add(tracks("a", "b"), false))

		assert.Equal(t, -1, c.CurrentIndex())
		assert.Empty(t, a.Calls())
		assert.Equal(t, []string{"add a,b"}, p.Ops())
	})

	t.Run("play immediately starts the first added track", func(t *testing.T) {
		c, a, p := newTestController(t, "a", "b")

		require.NoError(t, c.Add(tracks("x", "y"), true))

		assert.Equal(t, 2, c.CurrentIndex())
		assert.Equal(t, []string{"load x.mp3", "play"}, a.Calls())
		assert.Equal(t, []string{"add x,y", "index 2"}, p.Ops())
	})
}

func TestController_InsertBeforeCurrent(t *testing.T) {
	c, _, p := newTestController(t, "a", "b")
	require.NoError(t, c.PlayIndex(1))
	p.Reset()

	c.Insert(0, tracks("x"))

	assert.Equal(t, "b", currentID(t, c))
	assert.Equal(t, 2, c.CurrentIndex())
	assert.Equal(t, []string{"add@0 x", "index 2"}, p.Ops())
}

func TestController_Reorder(t *testing.T) {
	c, a, p := newTestController(t, "a", "b", "c")

	c.Reorder(0, 2)

	assert.Equal(t, []string{"b", "c", "a"}, track.IDs(c.Items()))
	assert.Equal(t, "a", currentID(t, c))
	assert.Equal(t, 2, c.CurrentIndex())
	assert.Empty(t, a.Calls())
	assert.Equal(t, []string{"move 0 2", "index 2"}, p.Ops())
}

func TestController_Clear(t *testing.T) {
	c, a, p := newTestController(t, "a", "b")

	c.Clear()

	assert.Equal(t, 0, c.Status().Length)
	assert.Equal(t, -1, c.CurrentIndex())
	assert.Equal(t, []string{"stop"}, a.Calls())
	assert.Equal(t, []string{"clear"}, p.Ops())
}

func TestController_AudioFailure(t *testing.T) {
	c, a, _ := newTestController(t, "a", "b", "c")
	a.failLoad["b.mp3"] = errors.New("no such file")
	drainEvents(c)

	err := c.PlayNext()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAudioUnavailable))
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, StateStopped, c.GetState())
	assert.NotContains(t, a.Calls(), "load c.mp3")

	var failed []Event
	for _, e := range drainEvents(c) {
		if e.Type == EventPlaybackError {
			failed = append(failed, e)
		}
	}
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].Track)
	assert.Equal(t, "b", failed[0].Track.ID)
}

func TestController_LoadErrorEventDoesNotAdvance(t *testing.T) {
	c, a, _ := newTestController(t, "a", "b")
	drainEvents(c)

	c.handleAudioEvent(audio.Event{Type: audio.EventLoadError, Generation: a.Generation(), Err: errors.New("bad frame")})

	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, StateStopped, c.GetState())
	events := drainEvents(c)
	require.NotEmpty(t, events)
	assert.Equal(t, EventPlaybackError, events[len(events)-1].Type)
}

func TestController_ToggleShuffle(t *testing.T) {
	c, _, p := newTestController(t, "a", "b", "c", "d", "e")
	require.NoError(t, c.PlayIndex(3))
	p.Reset()

	assert.True(t, c.ToggleShuffle())

	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, "d", currentID(t, c))
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, track.IDs(c.Items()))
	ops := p.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, fmt.Sprintf("replace %s @0", strings.Join(track.IDs(c.Items()), ",")), ops[0])
	assert.Equal(t, "shuffle true", ops[1])

	assert.False(t, c.ToggleShuffle())

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, track.IDs(c.Items()))
	assert.Equal(t, 3, c.CurrentIndex())
}

func TestController_ReshuffleOnWrap(t *testing.T) {
	c, _, p := newTestController(t, "a", "b", "c", "d", "e")
	c.SetShuffle(true)
	c.SetLoop(playmode.LoopAll)
	for i := 0; i < 4; i++ {
		require.NoError(t, c.PlayNext())
	}
	last := currentID(t, c)
	p.Reset()

	require.NoError(t, c.PlayNext())

	assert.Equal(t, 0, c.CurrentIndex())
	assert.NotEqual(t, last, currentID(t, c))
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, track.IDs(c.Items()))
	ops := p.Ops()
	require.NotEmpty(t, ops)
	assert.True(t, strings.HasPrefix(ops[0], "replace "))
	assert.True(t, strings.HasSuffix(ops[0], " @0"))
}

func TestController_CycleLoop(t *testing.T) {
	c, _, p := newTestController(t, "a")

	assert.Equal(t, playmode.LoopAll, c.CycleLoop())
	assert.Equal(t, playmode.LoopOne, c.CycleLoop())
	assert.Equal(t, playmode.LoopNone, c.CycleLoop())
	assert.Equal(t, []string{"loop all", "loop one", "loop none"}, p.Ops())
}

func TestController_HasNextHasPreviousLoopAll(t *testing.T) {
	c, _, _ := newTestController(t, "a", "b", "c")
	c.SetLoop(playmode.LoopAll)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.PlayIndex(i))
		assert.True(t, c.HasNext())
		assert.True(t, c.HasPrevious())
	}
}

func TestController_Transport(t *testing.T) {
	c, a, _ := newTestController(t)
	require.NoError(t, c.Add(tracks("a", "b"), false))
	a.Reset()

	require.NoError(t, c.TogglePlay())
	assert.Equal(t, StatePlaying, c.GetState())
	assert.Equal(t, 0, c.CurrentIndex())

	require.NoError(t, c.TogglePlay())
	assert.Equal(t, StatePaused, c.GetState())

	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.GetState())

	require.NoError(t, c.TogglePlay())
	assert.Equal(t, StatePlaying, c.GetState())

	require.NoError(t, c.Seek(42*time.Second))
	assert.Equal(t, 42*time.Second, c.Status().Position)

	c.Stop()
	assert.Equal(t, StateStopped, c.GetState())
	require.NoError(t, c.Seek(time.Second))

	assert.Equal(t, []string{"load a.mp3", "play", "pause", "play", "seek 42s", "stop"}, a.Calls())
}

func TestController_SetVolumeClamps(t *testing.T) {
	c, a, _ := newTestController(t)

	require.NoError(t, c.SetVolume(1.5))
	assert.Equal(t, 1.0, c.Status().Volume)
	require.NoError(t, c.SetVolume(-1))
	assert.Equal(t, 0.0, c.Status().Volume)
	assert.Equal(t, []string{"volume 1.00", "volume 0.00"}, a.Calls())
}

func TestController_Replace(t *testing.T) {
	c, a, p := newTestController(t, "a", "b")

	require.NoError(t, c.Replace(tracks("x", "y", "z"), 1))

	assert.Equal(t, []string{"x", "y", "z"}, track.IDs(c.Items()))
	assert.Equal(t, "y", currentID(t, c))
	assert.Equal(t, []string{"load y.mp3", "play"}, a.Calls())
	assert.Equal(t, []string{"replace x,y,z @-1", "index 1"}, p.Ops())
}

func TestController_AudioLoop(t *testing.T) {
	c, a, _ := newTestController(t, "a", "b")
	c.Start()
	defer c.Close()

	a.events <- audio.Event{Type: audio.EventProgress, Generation: a.Generation(), Position: 2 * time.Second, Duration: time.Minute}
	assert.Eventually(t, func() bool {
		return c.Status().Position == 2*time.Second
	}, time.Second, 5*time.Millisecond)

	a.events <- audio.Event{Type: audio.EventTrackEnded, Generation: a.Generation()}
	assert.Eventually(t, func() bool {
		return c.CurrentIndex() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestController_StaleTrackEndedIsDropped(t *testing.T) {
	c, a, _ := newTestController(t, "a", "b", "c", "d")

	a.events <- audio.Event{Type: audio.EventTrackEnded, Generation: a.Generation()}
	require.NoError(t, c.PlayIndex(2))

	c.Start()
	defer c.Close()

	assert.Eventually(t, func() bool {
		return len(a.events) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool {
		return c.CurrentIndex() != 2
	}, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, "c", currentID(t, c))
}

func TestController_EventsAfterStopAreDropped(t *testing.T) {
	c, a, _ := newTestController(t, "a", "b")
	gen := a.Generation()
	c.Stop()

	c.handleAudioEvent(audio.Event{Type: audio.EventTrackEnded, Generation: gen})
	c.handleAudioEvent(audio.Event{Type: audio.EventProgress, Generation: gen, Position: time.Minute})

	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, StateStopped, c.GetState())
	assert.Equal(t, time.Duration(0), c.Status().Position)
}

func TestController_Events(t *testing.T) {
	c, _, _ := newTestController(t)
	drainEvents(c)

	require.NoError(t, c.Add(tracks("a"), true))

	var types []EventType
	for _, e := range drainEvents(c) {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{EventQueueChanged, EventTrackStarted}, types)
}
