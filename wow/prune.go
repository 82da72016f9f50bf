package wow

import (
	"slices"

	"github.com/hupe1980/wowgo/internal/queue"
)

// pruneByHeuristic reduces candidates to at most m RNG-style neighbors
// of the pivot the candidate distances were measured from. Scanning in
// ascending distance order, a candidate is accepted only when no
// already-accepted node sits closer to it than the pivot does; such an
// edge would be redundant because the accepted node lies "between" the
// pivot and the candidate.
func (ix *Index[A]) pruneByHeuristic(candidates []queue.Item, m int) []queue.Item {
	if len(candidates) <= m {
		return candidates
	}
	if m == 0 {
		return nil
	}

	slices.SortFunc(candidates, func(a, b queue.Item) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	pruned := make([]queue.Item, 0, m)
	for _, c := range candidates {
		if len(pruned) >= m {
			break
		}
		good := true
		for _, a := range pruned {
			cur := ix.dist(ix.arena.Vector(c.Node), ix.arena.Vector(a.Node))
			ix.distComps.Add(1)
			// cur < c.Distance also rejects duplicate IDs (cur == 0).
			if cur < c.Distance {
				good = false
				break
			}
		}
		if good {
			pruned = append(pruned, c)
		}
	}
	return pruned
}
