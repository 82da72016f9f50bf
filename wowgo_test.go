package wowgo

import (
	"math/rand/v2"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wowgo/distance"
	"github.com/hupe1980/wowgo/filter"
	"github.com/hupe1980/wowgo/model"
)

func TestFacadeEndToEnd(t *testing.T) {
	const (
		n = 500
		d = 8
	)
	rng := rand.New(rand.NewPCG(1, 2))

	metrics := &BasicMetricsCollector{}
	index, err := New[int32](n, d, "l2",
		WithM(12),
		WithEFConstruction(64),
		WithMetrics(metrics),
	)
	require.NoError(t, err)
	defer index.Close()

	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		vecs[i] = make([]float32, d)
		for j := range vecs[i] {
			vecs[i][j] = rng.Float32()
		}
		require.NoError(t, index.Insert(model.Label(i), vecs[i], int32(i), false))
	}
	require.Equal(t, n, index.Size())
	require.Equal(t, d, index.Dimension())

	res, err := index.SearchKNN(vecs[42], 64, 1, filter.NewRange[int32](0, n))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, model.Label(42), res[0].Label)
	assert.Equal(t, float32(0), res[0].Distance)

	assert.Equal(t, int64(n), metrics.InsertCount.Load())
	assert.Equal(t, int64(1), metrics.SearchCount.Load())
	assert.NotZero(t, index.Stats().DistComps)

	path := filepath.Join(t.TempDir(), "facade.wow")
	require.NoError(t, index.Save(path))
	assert.Equal(t, int64(1), metrics.SaveCount.Load())

	loaded, err := Open[int32](path, "l2")
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, n, loaded.Size())

	got, err := loaded.SearchKNN(vecs[42], 64, 1, filter.NewRange[int32](0, n))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Label(42), got[0].Label)
}

func TestFacadeRejectsUnknownSpace(t *testing.T) {
	_, err := New[int32](10, 4, "cosine")
	var unsupported *distance.ErrUnsupportedSpace
	require.ErrorAs(t, err, &unsupported)
}

func TestFacadeErrorsPropagate(t *testing.T) {
	index, err := New[int32](2, 4, "l2")
	require.NoError(t, err)
	defer index.Close()

	require.ErrorIs(t, index.Insert(1, []float32{1, 2, 3, 4}, 0, true), ErrReplaceDeleted)

	require.NoError(t, index.Insert(1, []float32{1, 2, 3, 4}, 0, false))
	_, err = index.SearchKNN([]float32{1, 2, 3, 4}, 4, 0, nil)
	require.ErrorIs(t, err, ErrInvalidK)
}

func TestFacadeResultsSortable(t *testing.T) {
	index, err := New[int32](16, 2, "l2", WithM(4), WithEFConstruction(16))
	require.NoError(t, err)
	defer index.Close()

	for i := 0; i < 16; i++ {
		require.NoError(t, index.Insert(model.Label(i), []float32{float32(i), 0}, int32(i), false))
	}

	res, err := index.SearchKNN([]float32{0, 0}, 16, 4, filter.NewRange[int32](0, 15))
	require.NoError(t, err)
	require.Len(t, res, 4)

	// Results carry no ordering guarantee; callers sort.
	sort.Slice(res, func(i, j int) bool { return res[i].Distance < res[j].Distance })
	for i, r := range res {
		assert.Equal(t, model.Label(i), r.Label)
	}
}
