// Package ordertable provides the order-statistic tree over
// (attribute, label) pairs. It is the source of truth for "which items
// lie in this attribute window": inserts, rank queries, k-th
// predecessor/successor windows and range cardinality with entry-point
// extraction all run in O(log N).
//
// The tree is weight-balanced. Nodes live in a slab indexed by int32,
// so the structure owns its memory and holds no pointer cycles.
package ordertable

import (
	"errors"
	"sync"

	"github.com/hupe1980/wowgo/model"
)

// ErrRangeEmpty is returned when a range query covers no indexed key.
var ErrRangeEmpty = errors.New("ordertable: no key in range")

// ErrKeyNotFound is returned when a window pivot that must exist is
// absent from the table. It indicates a broken publication order.
var ErrKeyNotFound = errors.New("ordertable: key not found")

// Key orders items lexicographically by (attribute, label). The label
// tiebreak keeps keys unique even when attributes repeat.
type Key[A model.Attribute] struct {
	Att   A
	Label model.Label
}

// Less reports whether k orders strictly before o.
func (k Key[A]) Less(o Key[A]) bool {
	return k.Att < o.Att || (k.Att == o.Att && k.Label < o.Label)
}

// LessEq reports whether k orders before or equal to o.
func (k Key[A]) LessEq(o Key[A]) bool {
	return !o.Less(k)
}

// Candidate is a (distance, id, key) tuple passed through InWindow.
type Candidate[A model.Attribute] struct {
	Dist float32
	ID   model.InternalID
	Key  Key[A]
}

const (
	// Weight-balance parameters: a subtree may be at most delta times
	// heavier than its sibling; ratio picks single vs double rotation.
	delta = 3
	ratio = 2
)

const nilNode = int32(-1)

type node[A model.Attribute] struct {
	key         Key[A]
	id          model.InternalID
	left, right int32
	size        uint32
}

// Table is a weight-balanced order-statistic tree. A single coarse
// mutex serialises all operations; tree work is O(log N) per call and
// graph work dominates, so finer locking has not been worth it.
type Table[A model.Attribute] struct {
	mu    sync.Mutex
	nodes []node[A]
	root  int32
}

// New creates a table with slab capacity for maxN keys.
func New[A model.Attribute](maxN int) *Table[A] {
	return &Table[A]{
		nodes: make([]node[A], 0, maxN),
		root:  nilNode,
	}
}

// Len returns the number of keys in the table.
func (t *Table[A]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.size(t.root))
}

// Insert adds key -> id to the table. Keys are unique by construction
// ((attribute, label) pairs); inserting a duplicate key is a caller bug
// and places the duplicate adjacent to the original.
func (t *Table[A]) Insert(key Key[A], id model.InternalID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root = t.insert(t.root, key, id)
}

// Window returns the keys of the h-th predecessor and h-th successor of
// the pivot (each clamped at the table endpoints) together with up to
// two entry IDs, the boundary nodes, deduplicated. The pivot key need
// not be present.
func (t *Table[A]) Window(pivot Key[A], h int) (lo, hi Key[A], entries []model.InternalID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := int(t.size(t.root))
	if n == 0 {
		return lo, hi, nil
	}
	if 2*h >= n {
		minN, maxN := t.minNode(t.root), t.maxNode(t.root)
		return t.nodes[minN].key, t.nodes[maxN].key, []model.InternalID{t.nodes[minN].id}
	}

	// Index of the pivot position: first key >= pivot, or the last key
	// when the pivot is beyond the maximum.
	r, found := t.lowerBound(pivot)
	if !found {
		r = n - 1
	}
	loIdx, hiIdx := r-h, r+h
	if loIdx < 0 {
		loIdx = 0
	}
	if hiIdx > n-1 {
		hiIdx = n - 1
	}
	loN, hiN := t.selectAt(t.root, loIdx), t.selectAt(t.root, hiIdx)
	entries = append(entries, t.nodes[loN].id)
	if t.nodes[hiN].id != t.nodes[loN].id {
		entries = append(entries, t.nodes[hiN].id)
	}
	return t.nodes[loN].key, t.nodes[hiN].key, entries
}

// InWindow filters candidates to those whose key lies in the window of
// half-width h centered on the given key. The center key must be
// present in the table.
func (t *Table[A]) InWindow(center Key[A], h int, candidates []Candidate[A]) ([]Candidate[A], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := int(t.size(t.root))
	if 2*h >= n {
		out := make([]Candidate[A], len(candidates))
		copy(out, candidates)
		return out, nil
	}
	r, found := t.lowerBound(center)
	if !found || t.nodes[t.selectAt(t.root, r)].key != center {
		return nil, ErrKeyNotFound
	}
	loIdx, hiIdx := r-h, r+h
	if loIdx < 0 {
		loIdx = 0
	}
	if hiIdx > n-1 {
		hiIdx = n - 1
	}
	loK := t.nodes[t.selectAt(t.root, loIdx)].key
	hiK := t.nodes[t.selectAt(t.root, hiIdx)].key

	out := make([]Candidate[A], 0, len(candidates))
	for _, c := range candidates {
		if loK.LessEq(c.Key) && c.Key.LessEq(hiK) {
			out = append(out, c)
		}
	}
	return out, nil
}

// RangeCardinality returns the number of keys in [l, u] and the
// deduplicated boundary IDs (first key >= l, last key <= u).
// Fails with ErrRangeEmpty when the range covers no key.
func (t *Table[A]) RangeCardinality(l, u Key[A]) (int, []model.InternalID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, okL := t.lowerBound(l)
	j, okU := t.floorIndex(u)
	if !okL || !okU || j < i {
		return 0, nil, ErrRangeEmpty
	}
	loN, hiN := t.selectAt(t.root, i), t.selectAt(t.root, j)
	entries := []model.InternalID{t.nodes[loN].id}
	if t.nodes[hiN].id != t.nodes[loN].id {
		entries = append(entries, t.nodes[hiN].id)
	}
	return j - i + 1, entries, nil
}

// Keys returns the in-order key/id enumeration. Intended for invariant
// checks and tests; it allocates O(N).
func (t *Table[A]) Keys() ([]Key[A], []model.InternalID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]Key[A], 0, t.size(t.root))
	ids := make([]model.InternalID, 0, t.size(t.root))
	var walk func(int32)
	walk = func(n int32) {
		if n == nilNode {
			return
		}
		walk(t.nodes[n].left)
		keys = append(keys, t.nodes[n].key)
		ids = append(ids, t.nodes[n].id)
		walk(t.nodes[n].right)
	}
	walk(t.root)
	return keys, ids
}

func (t *Table[A]) size(n int32) uint32 {
	if n == nilNode {
		return 0
	}
	return t.nodes[n].size
}

func (t *Table[A]) update(n int32) {
	t.nodes[n].size = 1 + t.size(t.nodes[n].left) + t.size(t.nodes[n].right)
}

func (t *Table[A]) insert(n int32, key Key[A], id model.InternalID) int32 {
	if n == nilNode {
		t.nodes = append(t.nodes, node[A]{key: key, id: id, left: nilNode, right: nilNode, size: 1})
		return int32(len(t.nodes) - 1)
	}
	// The recursive call may grow the slab; assign via a temporary so
	// the element address is taken after any reallocation.
	if key.Less(t.nodes[n].key) {
		child := t.insert(t.nodes[n].left, key, id)
		t.nodes[n].left = child
	} else {
		child := t.insert(t.nodes[n].right, key, id)
		t.nodes[n].right = child
	}
	return t.rebalance(n)
}

func (t *Table[A]) rebalance(n int32) int32 {
	ls, rs := t.size(t.nodes[n].left), t.size(t.nodes[n].right)
	switch {
	case ls+rs <= 1:
		// nothing to do
	case rs > delta*ls:
		r := t.nodes[n].right
		if t.size(t.nodes[r].left) >= ratio*t.size(t.nodes[r].right) {
			t.nodes[n].right = t.rotateRight(r)
		}
		n = t.rotateLeft(n)
		return n
	case ls > delta*rs:
		l := t.nodes[n].left
		if t.size(t.nodes[l].right) >= ratio*t.size(t.nodes[l].left) {
			t.nodes[n].left = t.rotateLeft(l)
		}
		n = t.rotateRight(n)
		return n
	}
	t.update(n)
	return n
}

func (t *Table[A]) rotateLeft(n int32) int32 {
	r := t.nodes[n].right
	t.nodes[n].right = t.nodes[r].left
	t.nodes[r].left = n
	t.update(n)
	t.update(r)
	return r
}

func (t *Table[A]) rotateRight(n int32) int32 {
	l := t.nodes[n].left
	t.nodes[n].left = t.nodes[l].right
	t.nodes[l].right = n
	t.update(n)
	t.update(l)
	return l
}

// lowerBound returns the index (rank) of the first key >= key.
// found is false when every key orders before key.
func (t *Table[A]) lowerBound(key Key[A]) (int, bool) {
	idx, found := 0, false
	rank := 0
	for cur := t.root; cur != nilNode; {
		if key.LessEq(t.nodes[cur].key) {
			idx = rank + int(t.size(t.nodes[cur].left))
			found = true
			cur = t.nodes[cur].left
		} else {
			rank += int(t.size(t.nodes[cur].left)) + 1
			cur = t.nodes[cur].right
		}
	}
	return idx, found
}

// floorIndex returns the index of the last key <= key.
// found is false when every key orders after key.
func (t *Table[A]) floorIndex(key Key[A]) (int, bool) {
	idx, found := 0, false
	rank := 0
	for cur := t.root; cur != nilNode; {
		if t.nodes[cur].key.LessEq(key) {
			idx = rank + int(t.size(t.nodes[cur].left))
			found = true
			rank += int(t.size(t.nodes[cur].left)) + 1
			cur = t.nodes[cur].right
		} else {
			cur = t.nodes[cur].left
		}
	}
	return idx, found
}

// selectAt returns the slab index of the i-th smallest key (0-based).
func (t *Table[A]) selectAt(n int32, i int) int32 {
	for n != nilNode {
		ls := int(t.size(t.nodes[n].left))
		switch {
		case i < ls:
			n = t.nodes[n].left
		case i == ls:
			return n
		default:
			i -= ls + 1
			n = t.nodes[n].right
		}
	}
	return nilNode
}

func (t *Table[A]) minNode(n int32) int32 {
	for t.nodes[n].left != nilNode {
		n = t.nodes[n].left
	}
	return n
}

func (t *Table[A]) maxNode(n int32) int32 {
	for t.nodes[n].right != nilNode {
		n = t.nodes[n].right
	}
	return n
}
