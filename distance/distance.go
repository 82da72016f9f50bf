// Package distance provides the distance spaces supported by the index.
// All kernels dispatch through internal/simd, which selects an
// implementation tier from CPU capability detection at init.
package distance

import (
	"fmt"
	"slices"

	"github.com/hupe1980/wowgo/internal/simd"
)

// Space represents a distance space for vector comparison.
type Space int

const (
	// SpaceL2 is squared Euclidean distance.
	SpaceL2 Space = iota
	// SpaceIP is inner-product distance (1 - dot).
	SpaceIP
)

func (s Space) String() string {
	switch s {
	case SpaceL2:
		return "l2"
	case SpaceIP:
		return "ip"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ErrUnsupportedSpace indicates a space name outside {l2, ip}.
type ErrUnsupportedSpace struct {
	Name string
}

func (e *ErrUnsupportedSpace) Error() string {
	return fmt.Sprintf("unsupported space type %q, supported: l2, ip", e.Name)
}

// ParseSpace resolves a space name to a Space.
func ParseSpace(name string) (Space, error) {
	switch name {
	case "l2":
		return SpaceL2, nil
	case "ip":
		return SpaceIP, nil
	default:
		return 0, &ErrUnsupportedSpace{Name: name}
	}
}

// Func is a function type for distance calculation.
// Smaller values mean closer vectors in every space.
type Func func(a, b []float32) float32

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return simd.Dot(a, b)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two
// vectors. Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return simd.SquaredL2(a, b)
}

// InnerProduct calculates inner-product distance, 1 - <a, b>.
// Assumes vectors are the same length (caller's responsibility).
func InnerProduct(a, b []float32) float32 {
	return 1 - simd.Dot(a, b)
}

// Provider returns the distance function for the given space.
func Provider(s Space) (Func, error) {
	switch s {
	case SpaceL2:
		return SquaredL2, nil
	case SpaceIP:
		return InnerProduct, nil
	default:
		return nil, &ErrUnsupportedSpace{Name: s.String()}
	}
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := simd.Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := 1 / simd.Sqrt(norm2)
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}
