package queue

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("t%02d", i)
	}
	return out
}

func TestShuffle_IsPermutation(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for seed := uint64(0); seed < 10; seed++ {
			q := New(WithRand(rand.New(rand.NewPCG(seed, uint64(n)))))
			q.Add(tracks(seqIDs(n)...))
			q.SetCurrent(int(seed) % n)
			before := sortedIDs(q)

			require.True(t, q.SetShuffle(true))

			assert.Equal(t, n, q.Len())
			assert.Equal(t, before, sortedIDs(q))
		}
	}
}

func TestShuffle_PinsCurrentTrack(t *testing.T) {
	for n := 2; n <= 10; n++ {
		for cur := 0; cur < n; cur++ {
			q := New(WithRand(rand.New(rand.NewPCG(uint64(n), uint64(cur)))))
			q.Add(tracks(seqIDs(n)...))
			q.SetCurrent(cur)
			active, _ := q.Current()

			q.SetShuffle(true)

			assert.Equal(t, 0, q.CurrentIndex())
			first, _ := q.At(0)
			assert.Equal(t, active.ID, first.ID)
		}
	}
}

func TestShuffle_RoundTripRestoresOrder(t *testing.T) {
	for n := 0; n <= 10; n++ {
		for cur := -1; cur < n; cur++ {
			q := New(WithRand(rand.New(rand.NewPCG(uint64(n), uint64(cur+1)))))
			q.Add(tracks(seqIDs(n)...))
			q.SetCurrent(cur)
			before := ids(q)
			active, hadActive := q.Current()

			q.SetShuffle(true)
			q.SetShuffle(false)

			assert.Equal(t, before, ids(q))
			if hadActive {
				got, _ := q.Current()
				assert.Equal(t, active.ID, got.ID)
				assert.Equal(t, cur, q.CurrentIndex())
			} else {
				assert.Equal(t, -1, q.CurrentIndex())
			}
		}
	}
}

func TestShuffle_NoActiveTrack(t *testing.T) {
	q := newTestQueue(seqIDs(6)...)

	q.SetShuffle(true)

	assert.Equal(t, -1, q.CurrentIndex())
	assert.ElementsMatch(t, seqIDs(6), ids(q))
}

func TestShuffle_SameStateIsNoop(t *testing.T) {
	q := newTestQueue("a", "b")
	assert.False(t, q.SetShuffle(false))
	assert.True(t, q.SetShuffle(true))
	assert.False(t, q.SetShuffle(true))
}

func TestShuffle_ClearsHistory(t *testing.T) {
	q := newTestQueue("a", "b", "c")
	q.SetCurrent(2)
	q.History().Push(0)
	q.History().Push(1)

	q.SetShuffle(true)
	assert.Equal(t, 0, q.History().Len())

	q.History().Push(1)
	q.SetShuffle(false)
	assert.Equal(t, 0, q.History().Len())
}

func TestShuffle_MutationsWhileShuffled(t *testing.T) {
	q := newTestQueue("a", "b", "c", "d")
	q.SetCurrent(1)
	q.SetShuffle(true)

	q.Add(tracks("e"))
	q.Insert(0, tracks("f"))
	// Remove whichever entry holds "c".
	for i, it := range q.Items() {
		if it.ID == "c" {
			q.Remove(i)
			break
		}
	}

	q.SetShuffle(false)

	assert.Equal(t, []string{"a", "b", "d", "e", "f"}, ids(q))
	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.ID)
}

func TestShuffle_OffFallsBackToZeroWhenActiveMissing(t *testing.T) {
	q := newTestQueue("a", "b", "c")
	q.SetCurrent(0)
	q.SetShuffle(true)

	// Make the active entry unknown to the snapshot.
	q.original = q.original[1:]
	q.items = q.items[:0]
	q.items = append(q.items, Entry{Key: 999, Track: tracks("zzz")[0]})
	q.current = 0

	q.SetShuffle(false)

	assert.Equal(t, 0, q.CurrentIndex())
}

func TestShuffle_OffRelocatesDuplicatesByEntry(t *testing.T) {
	q := newTestQueue("a", "b", "a", "c")
	q.SetCurrent(2) // second "a"
	q.SetShuffle(true)
	q.SetShuffle(false)

	assert.Equal(t, 2, q.CurrentIndex())
}

func TestReshuffle(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		q := New(WithRand(rand.New(rand.NewPCG(seed, 42))))
		q.Add(tracks(seqIDs(5)...))
		q.SetShuffle(true)
		q.SetCurrent(4)
		avoid := q.ActiveKey()
		q.History().Push(3)

		q.Reshuffle(avoid)

		assert.ElementsMatch(t, seqIDs(5), ids(q))
		assert.NotEqual(t, avoid, q.Entries()[0].Key)
		assert.Equal(t, 0, q.History().Len())
	}
}

func TestReshuffle_SingleEntry(t *testing.T) {
	q := newTestQueue("a")
	q.SetCurrent(0)
	q.Reshuffle(q.ActiveKey())
	assert.Equal(t, []string{"a"}, ids(q))
}

func TestFisherYates_Distribution(t *testing.T) {
	r := rand.New(rand.NewPCG(9, 9))
	counts := map[string]int{}
	const rounds = 6000
	for i := 0; i < rounds; i++ {
		s := []string{"a", "b", "c"}
		fisherYates(s, r.IntN)
		counts[fmt.Sprint(s)]++
	}

	assert.Len(t, counts, 6)
	for perm, c := range counts {
		assert.InDelta(t, rounds/6, c, rounds/20, "permutation %s", perm)
	}
}
