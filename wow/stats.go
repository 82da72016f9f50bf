package wow

// Stats is a snapshot of the profiling counters. The counters are kept
// with relaxed atomics and merged on read, so snapshots taken during
// concurrent operation are safe but only meaningful for single-threaded
// profiling runs.
type Stats struct {
	DistComps uint64 // distance computations performed
	Hops      uint64 // beam-search node expansions
}

// Stats returns the current profiling counters.
func (ix *Index[A]) Stats() Stats {
	return Stats{
		DistComps: ix.distComps.Load(),
		Hops:      ix.hops.Load(),
	}
}

// ResetStats zeroes the profiling counters.
func (ix *Index[A]) ResetStats() {
	ix.distComps.Store(0)
	ix.hops.Store(0)
}
