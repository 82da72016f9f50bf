package model

import "fmt"

// InternalID is a dense, monotonically assigned identifier for an indexed
// item. IDs are assigned at insert time, start at 0, and are never reused.
type InternalID uint32

// InvalidID marks an unset internal ID. It is an explicit sentinel; code
// must never rely on unsigned wraparound of -1.
const InvalidID = InternalID(^uint32(0))

// Label is the caller-supplied opaque identifier attached to every vector.
type Label uint64

// MaxLabel is the largest representable label. Range filters over
// (attribute, label) pairs use it to widen attribute bounds.
const MaxLabel = Label(^uint64(0))

// Attribute constrains the scalar window key associated with every vector.
// The core only requires total order and a fixed byte size; any ordered
// fixed-width scalar qualifies.
type Attribute interface {
	~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// SearchResult is a single query hit: the distance from the query vector
// and the label of the matched item. Results carry no ordering guarantee
// beyond "these are the k smallest distances the search returned".
type SearchResult struct {
	Distance float32
	Label    Label
}

func (r SearchResult) String() string {
	return fmt.Sprintf("(%g, %d)", r.Distance, r.Label)
}
