package persistence

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteUint64(42))
	require.NoError(t, w.WriteUint64(^uint64(0)))
	require.NoError(t, w.WriteBytes([]byte{1, 2, 3}))

	r := NewReader(&buf)
	v, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	v, err = r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), v)

	p := make([]byte, 3)
	require.NoError(t, r.ReadFull(p))
	assert.Equal(t, []byte{1, 2, 3}, p)
}

func TestLittleEndianLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteUint64(0x0102030405060708))
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, buf.Bytes())
}

func TestShortReadsAreCorrupt(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3}))
	_, err := r.ReadUint64()
	require.ErrorIs(t, err, ErrCorruptFile)

	r = NewReader(bytes.NewReader(nil))
	err = r.ReadFull(make([]byte, 4))
	require.ErrorIs(t, err, ErrCorruptFile)
}

func TestSaveToFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.wow")

	require.NoError(t, SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("payload"))
		return err
	}))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveToFileWriteError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.wow")

	wantErr := assert.AnError
	err := SaveToFile(path, func(io.Writer) error { return wantErr })
	require.ErrorIs(t, err, wantErr)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "failed save must not leave a file")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte{9, 9}, 0o644))

	var got []byte
	require.NoError(t, LoadFromFile(path, func(r io.Reader) error {
		var err error
		got, err = io.ReadAll(r)
		return err
	}))
	assert.Equal(t, []byte{9, 9}, got)

	err := LoadFromFile(filepath.Join(dir, "missing"), func(io.Reader) error { return nil })
	require.Error(t, err)
}
