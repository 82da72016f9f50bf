package simd

import "github.com/klauspost/cpuid/v2"

// Capability describes the detected kernel tier.
type Capability uint8

const (
	// CapScalar is the portable scalar tier.
	CapScalar Capability = iota
	// CapUnrolled is the 4-way unrolled tier, selected on cores with
	// wide SIMD units (AVX2/FMA on x86-64, ASIMD on arm64).
	CapUnrolled
)

func (c Capability) String() string {
	switch c {
	case CapScalar:
		return "scalar"
	case CapUnrolled:
		return "unrolled"
	default:
		return "unknown"
	}
}

var detected = CapScalar

// Detected returns the kernel tier selected at init.
func Detected() Capability {
	return detected
}

func init() {
	if cpuid.CPU.Has(cpuid.AVX2) && cpuid.CPU.Has(cpuid.FMA3) {
		detected = CapUnrolled
	} else if cpuid.CPU.Has(cpuid.ASIMD) {
		detected = CapUnrolled
	}
	if detected == CapUnrolled {
		kernelDot = dotUnrolled
		kernelSquaredL2 = squaredL2Unrolled
	}
}
