// Package arena provides the flat node arena backing the layered graph.
//
// Every internal ID owns one fixed-size record holding, in order: the
// label (8 bytes), the attribute (its fixed byte size), the vector
// (4 bytes per dimension) and wp+1 per-layer neighbor lists of M+1
// uint32 slots each, where slot M is the list length. Layer lists are
// stored in reverse layer order so the topmost layer sits adjacent to
// the vector data; prefetching the upper layer pulls in lower layers.
//
// The record layout is fixed at creation. Label, attribute and vector
// are never mutated after a record is published; neighbor lists are
// rewritten by back-edge updates, so the arena itself provides no
// synchronization and callers guard link-list access with their own
// per-node locks.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/hupe1980/wowgo/internal/mmap"
	"github.com/hupe1980/wowgo/model"
)

// ErrAllocFailed is returned when the backing memory cannot be obtained.
type ErrAllocFailed struct {
	Bytes uint64
	cause error
}

func (e *ErrAllocFailed) Error() string {
	return fmt.Sprintf("arena: failed to allocate %d bytes", e.Bytes)
}

func (e *ErrAllocFailed) Unwrap() error { return e.cause }

// Layout describes the fixed per-record geometry.
type Layout struct {
	Dim     int // vector dimension
	AttSize int // attribute byte size
	M       int // max out-degree per layer
	WP      int // maximum layer index

	RecordSize  uint64
	OffsetLabel uint64
	OffsetAtt   uint64
	OffsetVec   uint64
	OffsetLinks uint64
}

// NewLayout computes the record geometry. Attribute sizes are multiples
// of four, which keeps the vector field aligned for float32 loads; the
// record size is rounded up to eight bytes so every record starts with
// an aligned label word.
func NewLayout(dim, attSize, m, wp int) Layout {
	l := Layout{Dim: dim, AttSize: attSize, M: m, WP: wp}
	l.OffsetLabel = 0
	l.OffsetAtt = l.OffsetLabel + 8
	l.OffsetVec = l.OffsetAtt + uint64(attSize)
	l.OffsetLinks = l.OffsetVec + 4*uint64(dim)
	l.RecordSize = (l.OffsetLinks + 4*uint64(m+1)*uint64(wp+1) + 7) &^ 7
	return l
}

// Arena is a contiguous buffer of maxN fixed-size records.
type Arena struct {
	layout  Layout
	maxN    int
	mapping *mmap.Mapping
	buf     []byte
	base    unsafe.Pointer
}

// New allocates an arena for maxN records of the given layout.
func New(maxN int, layout Layout) (*Arena, error) {
	total := uint64(maxN) * layout.RecordSize
	m, err := mmap.MapAnon(int(total))
	if err != nil {
		return nil, &ErrAllocFailed{Bytes: total, cause: err}
	}
	buf := m.Bytes()
	if total > 0 && buf == nil {
		return nil, &ErrAllocFailed{Bytes: total}
	}
	a := &Arena{layout: layout, maxN: maxN, mapping: m, buf: buf}
	if len(buf) > 0 {
		a.base = unsafe.Pointer(&buf[0])
	}
	return a, nil
}

// Layout returns the record geometry.
func (a *Arena) Layout() Layout { return a.layout }

// MaxN returns the record capacity.
func (a *Arena) MaxN() int { return a.maxN }

// Bytes returns the whole backing buffer. Used by persistence; the
// returned slice aliases live records.
func (a *Arena) Bytes() []byte { return a.buf }

func (a *Arena) record(id model.InternalID) unsafe.Pointer {
	return unsafe.Add(a.base, uint64(id)*a.layout.RecordSize)
}

// Label returns a pointer to the label field of the record.
func (a *Arena) Label(id model.InternalID) *model.Label {
	return (*model.Label)(unsafe.Add(a.record(id), a.layout.OffsetLabel))
}

// AttPointer returns the raw attribute field of the record. The caller
// reinterprets it as the concrete attribute type.
func (a *Arena) AttPointer(id model.InternalID) unsafe.Pointer {
	return unsafe.Add(a.record(id), a.layout.OffsetAtt)
}

// Vector returns the vector field of the record as a float32 slice.
func (a *Arena) Vector(id model.InternalID) []float32 {
	p := unsafe.Add(a.record(id), a.layout.OffsetVec)
	return unsafe.Slice((*float32)(p), a.layout.Dim)
}

// LinkList returns the neighbor list of the record at the given layer as
// a uint32 slice of length M+1; index M is the list length.
func (a *Arena) LinkList(id model.InternalID, layer int) []uint32 {
	off := a.layout.OffsetLinks + 4*uint64(a.layout.M+1)*uint64(a.layout.WP-layer)
	p := unsafe.Add(a.record(id), off)
	return unsafe.Slice((*uint32)(p), a.layout.M+1)
}

// Close unmaps the backing memory. Records become invalid.
func (a *Arena) Close() error {
	a.buf = nil
	a.base = nil
	if a.mapping != nil {
		return a.mapping.Close()
	}
	return nil
}
