// Package wowgo is a windowed attribute-aware approximate-nearest-
// neighbor index. Every item carries an opaque label, an ordered scalar
// attribute and a fixed-dimension float32 vector; queries return the k
// nearest vectors under L2 or inner-product distance restricted to an
// attribute filter - a closed range, an explicit set, or a label
// bitset.
//
// The index is memory-resident and build-once: items are inserted,
// searched and persisted, never deleted or mutated. Inserts and
// searches are safe to run concurrently from any number of goroutines.
//
// The root package is a thin facade wiring logging and metrics around
// the core in package wow; callers needing the raw core can use it
// directly.
package wowgo
