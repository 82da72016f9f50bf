package ordertable

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wowgo/model"
)

// sortedOracle mirrors the table as a sorted slice for cross-checking.
type sortedOracle struct {
	keys []Key[int32]
	ids  map[Key[int32]]model.InternalID
}

func buildOracle(t *Table[int32], n int, rng *rand.Rand, attRange int32) *sortedOracle {
	o := &sortedOracle{ids: make(map[Key[int32]]model.InternalID)}
	for i := 0; i < n; i++ {
		k := Key[int32]{Att: rng.Int32N(attRange), Label: model.Label(i)}
		t.Insert(k, model.InternalID(i))
		o.keys = append(o.keys, k)
		o.ids[k] = model.InternalID(i)
	}
	sort.Slice(o.keys, func(a, b int) bool { return o.keys[a].Less(o.keys[b]) })
	return o
}

func TestInsertEnumeratesSorted(t *testing.T) {
	tbl := New[int32](512)
	rng := rand.New(rand.NewPCG(1, 1))
	oracle := buildOracle(tbl, 512, rng, 64) // many duplicate attributes

	keys, ids := tbl.Keys()
	require.Len(t, keys, 512)
	assert.Equal(t, oracle.keys, keys)

	// The id enumeration is a permutation of [0, N).
	seen := make(map[model.InternalID]bool, len(ids))
	for i, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
		assert.Equal(t, oracle.ids[keys[i]], id)
	}
}

func TestSequentialInsertStaysBalanced(t *testing.T) {
	// Monotone attribute order is the worst case for an unbalanced
	// tree; ranks must still come back correct.
	tbl := New[int64](4096)
	for i := 0; i < 4096; i++ {
		tbl.Insert(Key[int64]{Att: int64(i), Label: model.Label(i)}, model.InternalID(i))
	}
	require.Equal(t, 4096, tbl.Len())

	card, entries, err := tbl.RangeCardinality(
		Key[int64]{Att: 100, Label: 0},
		Key[int64]{Att: 199, Label: model.MaxLabel},
	)
	require.NoError(t, err)
	assert.Equal(t, 100, card)
	assert.Equal(t, []model.InternalID{100, 199}, entries)
}

func TestWindow(t *testing.T) {
	tbl := New[int32](64)
	for i := 0; i < 10; i++ {
		tbl.Insert(Key[int32]{Att: int32(i * 10), Label: model.Label(i)}, model.InternalID(i))
	}

	t.Run("interior pivot", func(t *testing.T) {
		lo, hi, entries := tbl.Window(Key[int32]{Att: 50, Label: 5}, 2)
		assert.Equal(t, int32(30), lo.Att)
		assert.Equal(t, int32(70), hi.Att)
		assert.Equal(t, []model.InternalID{3, 7}, entries)
	})

	t.Run("clamped at the low end", func(t *testing.T) {
		lo, hi, entries := tbl.Window(Key[int32]{Att: 10, Label: 1}, 3)
		assert.Equal(t, int32(0), lo.Att)
		assert.Equal(t, int32(40), hi.Att)
		assert.Equal(t, []model.InternalID{0, 4}, entries)
	})

	t.Run("clamped at the high end", func(t *testing.T) {
		lo, hi, entries := tbl.Window(Key[int32]{Att: 90, Label: 9}, 3)
		assert.Equal(t, int32(60), lo.Att)
		assert.Equal(t, int32(90), hi.Att)
		assert.Equal(t, []model.InternalID{6, 9}, entries)
	})

	t.Run("absent pivot beyond maximum", func(t *testing.T) {
		_, hi, entries := tbl.Window(Key[int32]{Att: 1000, Label: 0}, 1)
		assert.Equal(t, int32(90), hi.Att)
		assert.NotEmpty(t, entries)
	})

	t.Run("window covering everything", func(t *testing.T) {
		lo, hi, entries := tbl.Window(Key[int32]{Att: 50, Label: 5}, 5)
		assert.Equal(t, int32(0), lo.Att)
		assert.Equal(t, int32(90), hi.Att)
		assert.Equal(t, []model.InternalID{0}, entries)
	})
}

func TestWindowAgainstOracle(t *testing.T) {
	tbl := New[int32](256)
	rng := rand.New(rand.NewPCG(9, 9))
	oracle := buildOracle(tbl, 256, rng, 1000)

	for trial := 0; trial < 200; trial++ {
		pivot := Key[int32]{Att: rng.Int32N(1100) - 50, Label: model.Label(rng.Uint64())}
		h := int(rng.Int32N(40))
		if 2*h >= len(oracle.keys) {
			continue
		}
		lo, hi, _ := tbl.Window(pivot, h)

		r := sort.Search(len(oracle.keys), func(i int) bool { return !oracle.keys[i].Less(pivot) })
		if r == len(oracle.keys) {
			r = len(oracle.keys) - 1
		}
		wantLo := oracle.keys[max(r-h, 0)]
		wantHi := oracle.keys[min(r+h, len(oracle.keys)-1)]
		require.Equal(t, wantLo, lo, "trial %d", trial)
		require.Equal(t, wantHi, hi, "trial %d", trial)
	}
}

func TestInWindow(t *testing.T) {
	tbl := New[int32](64)
	for i := 0; i < 10; i++ {
		tbl.Insert(Key[int32]{Att: int32(i * 10), Label: model.Label(i)}, model.InternalID(i))
	}

	cands := []Candidate[int32]{
		{Dist: 0.1, ID: 2, Key: Key[int32]{Att: 20, Label: 2}},
		{Dist: 0.2, ID: 5, Key: Key[int32]{Att: 50, Label: 5}},
		{Dist: 0.3, ID: 9, Key: Key[int32]{Att: 90, Label: 9}},
	}

	t.Run("filters to the window", func(t *testing.T) {
		got, err := tbl.InWindow(Key[int32]{Att: 40, Label: 4}, 2, cands)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, model.InternalID(2), got[0].ID)
		assert.Equal(t, model.InternalID(5), got[1].ID)
	})

	t.Run("whole-table window keeps everything", func(t *testing.T) {
		got, err := tbl.InWindow(Key[int32]{Att: 40, Label: 4}, 5, cands)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("missing center", func(t *testing.T) {
		_, err := tbl.InWindow(Key[int32]{Att: 41, Label: 4}, 2, cands)
		require.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestRangeCardinality(t *testing.T) {
	tbl := New[int32](64)
	for i := 0; i < 10; i++ {
		tbl.Insert(Key[int32]{Att: int32(i * 10), Label: model.Label(i)}, model.InternalID(i))
	}

	t.Run("interior range", func(t *testing.T) {
		card, entries, err := tbl.RangeCardinality(
			Key[int32]{Att: 25, Label: 0},
			Key[int32]{Att: 65, Label: model.MaxLabel},
		)
		require.NoError(t, err)
		assert.Equal(t, 4, card) // 30, 40, 50, 60
		assert.Equal(t, []model.InternalID{3, 6}, entries)
	})

	t.Run("single item range", func(t *testing.T) {
		card, entries, err := tbl.RangeCardinality(
			Key[int32]{Att: 50, Label: 0},
			Key[int32]{Att: 50, Label: model.MaxLabel},
		)
		require.NoError(t, err)
		assert.Equal(t, 1, card)
		assert.Equal(t, []model.InternalID{5}, entries)
	})

	t.Run("empty between keys", func(t *testing.T) {
		_, _, err := tbl.RangeCardinality(
			Key[int32]{Att: 41, Label: 0},
			Key[int32]{Att: 49, Label: model.MaxLabel},
		)
		require.ErrorIs(t, err, ErrRangeEmpty)
	})

	t.Run("empty below minimum", func(t *testing.T) {
		_, _, err := tbl.RangeCardinality(
			Key[int32]{Att: -100, Label: 0},
			Key[int32]{Att: -1, Label: model.MaxLabel},
		)
		require.ErrorIs(t, err, ErrRangeEmpty)
	})

	t.Run("empty above maximum", func(t *testing.T) {
		_, _, err := tbl.RangeCardinality(
			Key[int32]{Att: 91, Label: 0},
			Key[int32]{Att: 500, Label: model.MaxLabel},
		)
		require.ErrorIs(t, err, ErrRangeEmpty)
	})
}

func TestRangeCardinalityAgainstOracle(t *testing.T) {
	tbl := New[int32](300)
	rng := rand.New(rand.NewPCG(3, 3))
	oracle := buildOracle(tbl, 300, rng, 500)

	for trial := 0; trial < 200; trial++ {
		lo := rng.Int32N(600) - 50
		hi := lo + rng.Int32N(200)
		l := Key[int32]{Att: lo, Label: 0}
		u := Key[int32]{Att: hi, Label: model.MaxLabel}

		want := 0
		for _, k := range oracle.keys {
			if l.LessEq(k) && k.LessEq(u) {
				want++
			}
		}

		card, _, err := tbl.RangeCardinality(l, u)
		if want == 0 {
			require.ErrorIs(t, err, ErrRangeEmpty, "trial %d", trial)
			continue
		}
		require.NoError(t, err, "trial %d", trial)
		require.Equal(t, want, card, "trial %d", trial)
	}
}
