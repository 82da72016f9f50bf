package wow

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wowgo/distance"
	"github.com/hupe1980/wowgo/filter"
	"github.com/hupe1980/wowgo/model"
	"github.com/hupe1980/wowgo/persistence"
)

func buildTestIndex(t *testing.T, n, d int) (*Index[int32], [][]float32) {
	t.Helper()
	rng := rand.New(rand.NewPCG(99, 99))

	ix, err := New[int32](n, d, distance.SpaceL2, func(o *Options) {
		o.M = 12
		o.EFConstruction = 64
	})
	require.NoError(t, err)

	data := make([][]float32, n)
	for i := 0; i < n; i++ {
		data[i] = randVec(rng, d)
		require.NoError(t, ix.Insert(model.Label(i), data[i], int32(i), false))
	}
	return ix, data
}

func TestSaveLoadRoundTrip(t *testing.T) {
	const (
		n = 1500
		d = 8
	)
	ix, _ := buildTestIndex(t, n, d)
	defer ix.Close()

	path := filepath.Join(t.TempDir(), "index.wow")
	require.NoError(t, ix.Save(path))

	loaded, err := Open[int32](path, distance.SpaceL2)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, ix.Size(), loaded.Size())
	assert.Equal(t, ix.Dimension(), loaded.Dimension())
	assert.Equal(t, ix.MaxLayer(), loaded.MaxLayer())
	assert.Equal(t, ix.MaxElements(), loaded.MaxElements())
	assert.Equal(t, ix.M(), loaded.M())
	assert.Equal(t, ix.EFConstruction(), loaded.EFConstruction())

	// The arena must reproduce byte for byte, which covers labels,
	// attributes, vectors and every neighbor list at every layer.
	assert.True(t, bytes.Equal(ix.arena.Bytes(), loaded.arena.Bytes()))

	// The rebuilt order table enumerates the same mapping.
	wantKeys, wantIDs := ix.table.Keys()
	gotKeys, gotIDs := loaded.table.Keys()
	assert.Equal(t, wantKeys, gotKeys)
	assert.Equal(t, wantIDs, gotIDs)

	checkInvariants(t, loaded, n)
}

func TestQueriesIdenticalAfterReload(t *testing.T) {
	const (
		n = 1500
		d = 8
	)
	ix, _ := buildTestIndex(t, n, d)
	defer ix.Close()

	path := filepath.Join(t.TempDir(), "index.wow")
	require.NoError(t, ix.Save(path))

	loaded, err := Open[int32](path, distance.SpaceL2)
	require.NoError(t, err)
	defer loaded.Close()

	qrng := rand.New(rand.NewPCG(7, 123))
	for qi := 0; qi < 100; qi++ {
		q := randVec(qrng, d)
		lo := qrng.Int32N(n - 100)
		f := filter.NewRange[int32](lo, lo+100)

		want, err := ix.SearchKNN(q, 64, 10, f)
		require.NoError(t, err)
		got, err := loaded.SearchKNN(q, 64, 10, f)
		require.NoError(t, err)

		sortResults(want)
		sortResults(got)
		require.Equal(t, want, got, "query %d", qi)
	}
}

func TestOpenRejectsCorruptHeader(t *testing.T) {
	ix, _ := buildTestIndex(t, 64, 4)
	defer ix.Close()

	path := filepath.Join(t.TempDir(), "index.wow")
	require.NoError(t, ix.Save(path))

	t.Run("tampered record size", func(t *testing.T) {
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		tampered := append([]byte(nil), raw...)
		// Field 8 is record_size.
		binary.LittleEndian.PutUint64(tampered[8*8:], 12345)
		bad := filepath.Join(t.TempDir(), "bad.wow")
		require.NoError(t, os.WriteFile(bad, tampered, 0o644))

		_, err = Open[int32](bad, distance.SpaceL2)
		require.ErrorIs(t, err, persistence.ErrCorruptFile)
	})

	t.Run("wrong attribute width", func(t *testing.T) {
		// Reading an int32-keyed index as int64 changes the record
		// layout and must be rejected.
		_, err := Open[int64](path, distance.SpaceL2)
		require.ErrorIs(t, err, persistence.ErrCorruptFile)
	})

	t.Run("truncated body", func(t *testing.T) {
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		bad := filepath.Join(t.TempDir(), "short.wow")
		require.NoError(t, os.WriteFile(bad, raw[:len(raw)-16], 0o644))

		_, err = Open[int32](bad, distance.SpaceL2)
		require.ErrorIs(t, err, persistence.ErrCorruptFile)
	})

	t.Run("header only", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "tiny.wow")
		require.NoError(t, os.WriteFile(bad, []byte{1, 2, 3}, 0o644))

		_, err := Open[int32](bad, distance.SpaceL2)
		require.ErrorIs(t, err, persistence.ErrCorruptFile)
	})
}

func TestSaveIsStable(t *testing.T) {
	ix, _ := buildTestIndex(t, 128, 4)
	defer ix.Close()

	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.wow")
	p2 := filepath.Join(dir, "b.wow")
	require.NoError(t, ix.Save(p1))
	require.NoError(t, ix.Save(p2))

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(b1, b2), "saving twice must produce identical bytes")
}
