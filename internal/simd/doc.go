// Package simd provides the distance kernels used by the index core.
// Kernels are dispatched through function pointers chosen at init from
// CPU capability detection.
package simd
