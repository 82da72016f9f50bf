// Package filter defines the predicate variants a search can carry:
// an attribute range, an attribute set, a label bitset, or no filter.
// The search skeleton treats them uniformly; only Range drives the
// order-table entry-point and layer logic.
package filter

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/wowgo/model"
)

// Filter marks the supported predicate variants.
type Filter interface {
	isFilter()
}

// Range keeps items whose attribute lies in the closed interval [L, U].
type Range[A model.Attribute] struct {
	L, U A
}

// NewRange creates a closed attribute range [l, u].
func NewRange[A model.Attribute](l, u A) Range[A] {
	return Range[A]{L: l, U: u}
}

func (Range[A]) isFilter() {}

// Test reports whether att lies in [L, U].
func (r Range[A]) Test(att A) bool {
	return att >= r.L && att <= r.U
}

// Set keeps items whose attribute is an explicit member.
type Set[A model.Attribute] struct {
	members map[A]struct{}
}

// NewSet creates a set filter over the given attribute values.
func NewSet[A model.Attribute](values ...A) *Set[A] {
	s := &Set[A]{members: make(map[A]struct{}, len(values))}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func (*Set[A]) isFilter() {}

// Add inserts an attribute value.
func (s *Set[A]) Add(v A) {
	s.members[v] = struct{}{}
}

// Test reports membership.
func (s *Set[A]) Test(att A) bool {
	_, ok := s.members[att]
	return ok
}

// LabelFilter is the common surface of the label-keyed bitset variants.
type LabelFilter interface {
	Filter
	TestLabel(label model.Label) bool
}

// Bitset keeps items whose label is set in a roaring bitmap. Suited to
// sparse 64-bit label universes.
type Bitset struct {
	bm *roaring64.Bitmap
}

// NewBitset creates a bitset filter over the given labels.
func NewBitset(labels ...model.Label) *Bitset {
	b := &Bitset{bm: roaring64.New()}
	for _, l := range labels {
		b.Add(l)
	}
	return b
}

func (*Bitset) isFilter() {}

// Add marks a label.
func (b *Bitset) Add(label model.Label) {
	b.bm.Add(uint64(label))
}

// TestLabel reports whether the label is marked.
func (b *Bitset) TestLabel(label model.Label) bool {
	return b.bm.Contains(uint64(label))
}

// Cardinality returns the number of marked labels.
func (b *Bitset) Cardinality() uint64 {
	return b.bm.GetCardinality()
}

// DenseBitset keeps items whose label is set in a flat bitset. Suited
// to dense label universes known at construction.
type DenseBitset struct {
	bs *bitset.BitSet
}

// NewDenseBitset creates a dense bitset filter for labels < universe.
func NewDenseBitset(universe uint) *DenseBitset {
	return &DenseBitset{bs: bitset.New(universe)}
}

func (*DenseBitset) isFilter() {}

// Add marks a label.
func (d *DenseBitset) Add(label model.Label) {
	d.bs.Set(uint(label))
}

// TestLabel reports whether the label is marked.
func (d *DenseBitset) TestLabel(label model.Label) bool {
	return d.bs.Test(uint(label))
}

// None matches everything. A nil Filter behaves the same way.
type None struct{}

func (None) isFilter() {}
