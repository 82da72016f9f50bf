// Package fvecs reads and writes the benchmark dataset formats: fvecs
// vector files ([dim int32][dim float32] records), raw int32 attribute
// files, int32 range-pair files and ground-truth files
// ([k int32][k uint32] records). Files ending in .zst are transparently
// decompressed.
package fvecs

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/wowgo/model"
)

// ErrMalformed indicates a file that does not match its format.
var ErrMalformed = errors.New("fvecs: malformed file")

// open returns a buffered reader over path, decompressing .zst files.
func open(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(bufio.NewReaderSize(f, 256*1024))
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return zr, func() error {
			zr.Close()
			return f.Close()
		}, nil
	}
	return bufio.NewReaderSize(f, 256*1024), f.Close, nil
}

// ReadVectors reads an entire fvecs file. It returns the flattened
// vector data, the dimension and the vector count.
func ReadVectors(path string) ([]float32, int, int, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer closeFn() //nolint:errcheck

	var (
		data []float32
		dim  int
		n    int
	)
	for {
		var d int32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, 0, err
		}
		if d <= 0 {
			return nil, 0, 0, fmt.Errorf("%w: non-positive dimension %d", ErrMalformed, d)
		}
		if dim == 0 {
			dim = int(d)
		} else if int(d) != dim {
			return nil, 0, 0, fmt.Errorf("%w: dimension changed from %d to %d", ErrMalformed, dim, d)
		}
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, 0, 0, fmt.Errorf("%w: truncated vector record", ErrMalformed)
		}
		data = append(data, vec...)
		n++
	}
	return data, dim, n, nil
}

// WriteVectors writes vectors in fvecs format.
func WriteVectors(path string, data []float32, dim int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 256*1024)
	for off := 0; off < len(data); off += dim {
		if err := binary.Write(w, binary.LittleEndian, int32(dim)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, data[off:off+dim]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadAttributes reads a raw little-endian int32 attribute file.
func ReadAttributes(path string) ([]int32, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closeFn() //nolint:errcheck

	var atts []int32
	for {
		var a int32
		if err := binary.Read(r, binary.LittleEndian, &a); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: truncated attribute file", ErrMalformed)
		}
		atts = append(atts, a)
	}
	return atts, nil
}

// Range is one query filter: a closed attribute interval.
type Range struct {
	L, U int32
}

// ReadRanges reads a file of little-endian int32 (l, u) pairs.
func ReadRanges(path string) ([]Range, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closeFn() //nolint:errcheck

	var ranges []Range
	for {
		var lu [2]int32
		if err := binary.Read(r, binary.LittleEndian, &lu); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: truncated range file", ErrMalformed)
		}
		ranges = append(ranges, Range{L: lu[0], U: lu[1]})
	}
	return ranges, nil
}

// ReadGroundTruth reads [k int32][k uint32 labels] records.
func ReadGroundTruth(path string) ([][]model.Label, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closeFn() //nolint:errcheck

	var gt [][]model.Label
	for {
		var k int32
		if err := binary.Read(r, binary.LittleEndian, &k); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if k < 0 {
			return nil, fmt.Errorf("%w: negative ground-truth size %d", ErrMalformed, k)
		}
		labels := make([]model.Label, k)
		for i := range labels {
			var id uint32
			if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
				return nil, fmt.Errorf("%w: truncated ground-truth record", ErrMalformed)
			}
			labels[i] = model.Label(id)
		}
		gt = append(gt, labels)
	}
	return gt, nil
}

// WriteGroundTruth writes [k int32][k uint32 labels] records.
func WriteGroundTruth(path string, gt [][]model.Label) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 256*1024)
	for _, labels := range gt {
		if err := binary.Write(w, binary.LittleEndian, int32(len(labels))); err != nil {
			return err
		}
		for _, l := range labels {
			if err := binary.Write(w, binary.LittleEndian, uint32(l)); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
