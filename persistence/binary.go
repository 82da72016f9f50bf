// Package persistence provides the byte-exact on-disk format of the
// index: a fixed-width little-endian header followed by the raw arena
// bytes. The order table is not persisted; loaders rebuild it by
// scanning records.
package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// ErrCorruptFile indicates a header that disagrees with the recomputed
// record layout, or a file shorter than its header claims.
var ErrCorruptFile = errors.New("persistence: corrupt index file")

// Writer writes fixed-width fields in little-endian order.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteUint64 writes a single little-endian uint64 field.
func (bw *Writer) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := bw.w.Write(buf[:])
	return err
}

// WriteBytes writes raw bytes.
func (bw *Writer) WriteBytes(p []byte) error {
	_, err := bw.w.Write(p)
	return err
}

// Reader reads fixed-width fields in little-endian order.
type Reader struct {
	r io.Reader
}

// NewReader creates a Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadUint64 reads a single little-endian uint64 field.
// Short reads surface as ErrCorruptFile.
func (br *Reader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, shortRead(err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadFull fills p from the stream. Short reads surface as
// ErrCorruptFile.
func (br *Reader) ReadFull(p []byte) error {
	if _, err := io.ReadFull(br.r, p); err != nil {
		return shortRead(err)
	}
	return nil
}

func shortRead(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrCorruptFile
	}
	return err
}

// SaveToFile writes a file through writeFunc, buffered, synced and
// atomically renamed into place.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// Write to a temp file in the same directory to ensure rename is atomic.
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile reads a file through readFunc with buffering.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, 256*1024)
	return readFunc(buf)
}
