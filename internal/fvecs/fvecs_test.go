package fvecs

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wowgo/model"
)

func TestVectorsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.fvecs")
	data := []float32{1, 2, 3, 4, 5, 6}

	require.NoError(t, WriteVectors(path, data, 3))

	got, dim, n, err := ReadVectors(path)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)
	assert.Equal(t, 2, n)
	assert.Equal(t, data, got)
}

func TestReadVectorsZstd(t *testing.T) {
	plain := filepath.Join(t.TempDir(), "base.fvecs")
	require.NoError(t, WriteVectors(plain, []float32{1, 2, 3, 4}, 2))

	raw, err := os.ReadFile(plain)
	require.NoError(t, err)

	compressed := plain + ".zst"
	f, err := os.Create(compressed)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	got, dim, n, err := ReadVectors(compressed)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float32{1, 2, 3, 4}, got)
}

func TestReadVectorsDimensionChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.fvecs")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, int32(2)))
	require.NoError(t, binary.Write(f, binary.LittleEndian, []float32{1, 2}))
	require.NoError(t, binary.Write(f, binary.LittleEndian, int32(3)))
	require.NoError(t, binary.Write(f, binary.LittleEndian, []float32{1, 2, 3}))
	require.NoError(t, f.Close())

	_, _, _, err = ReadVectors(path)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atts.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, []int32{5, -3, 7}))
	require.NoError(t, f.Close())

	atts, err := ReadAttributes(path)
	require.NoError(t, err)
	assert.Equal(t, []int32{5, -3, 7}, atts)
}

func TestRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rng.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, []int32{1, 10, 20, 30}))
	require.NoError(t, f.Close())

	ranges, err := ReadRanges(path)
	require.NoError(t, err)
	assert.Equal(t, []Range{{L: 1, U: 10}, {L: 20, U: 30}}, ranges)
}

func TestGroundTruthRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.bin")
	gt := [][]model.Label{
		{3, 1, 4},
		{},
		{1, 5},
	}
	require.NoError(t, WriteGroundTruth(path, gt))

	got, err := ReadGroundTruth(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, gt[0], got[0])
	assert.Empty(t, got[1])
	assert.Equal(t, gt[2], got[2])
}
