package wow

import (
	"math/rand/v2"
	"sort"

	"github.com/hupe1980/wowgo/filter"
	"github.com/hupe1980/wowgo/internal/queue"
	"github.com/hupe1980/wowgo/model"
	"github.com/hupe1980/wowgo/ordertable"
)

// predicate tests a neighbor during beam search. A nil predicate admits
// everything.
type predicate[A model.Attribute] func(att A, label model.Label) bool

// searchCandidates is the cross-layer beam search shared by build and
// query. It expands the closest candidate, walking its link lists from
// layerHi down to layerLo until m new filter-passing neighbors have
// been accumulated for the expansion; a neighbor failing the filter
// does not consume that budget but causes the next lower layer to be
// consulted, because neighborhoods shrink as layers decrease.
//
// The expanded node's lock is held across the expansion in both modes.
// In build mode the nominated ignore ID is never visited, and the loop
// only stops once the result beam is full. The returned max-heap holds up to ef
// filter-passing candidates.
func (ix *Index[A]) searchCandidates(eps []queue.Item, q []float32, pred predicate[A], layerLo, layerHi, ef int, ignore model.InternalID, isBuild bool) *queue.PriorityQueue {
	result := queue.NewMax(ef + 1)
	if len(eps) == 0 {
		return result
	}

	vis := ix.pool.Get()
	vis.Clear()
	if isBuild && ignore != model.InvalidID {
		vis.Visit(ignore)
	}

	candidates := queue.NewMin(ef + 1)
	for _, ep := range eps {
		candidates.Push(ep)
		result.Push(ep)
		vis.Visit(ep.Node)
	}
	top, _ := result.Top()
	resMax := top.Distance

	for candidates.Len() > 0 {
		closest, _ := candidates.Top()
		if isBuild {
			if closest.Distance > resMax && result.Len() == ef {
				break
			}
		} else if closest.Distance > resMax {
			break
		}
		candidates.Pop()
		ix.hops.Add(1)

		// The expanded node's link lists may be rewritten by concurrent
		// back-edge updates; hold its lock across the walk.
		ix.locks[closest.Node].Lock()

		neighborCnt := 0
		for layer := layerHi; layer >= layerLo; layer-- {
			if neighborCnt >= ix.m {
				break
			}
			ll := ix.arena.LinkList(closest.Node, layer)
			sz := int(ll[ix.m])
			visitNextLayer := false
			for i := 0; i < sz; i++ {
				if neighborCnt >= ix.m {
					break
				}
				nn := model.InternalID(ll[i])
				if pred != nil && !pred(ix.attOf(nn), *ix.arena.Label(nn)) {
					visitNextLayer = true
					continue
				}
				if vis.Visited(nn) {
					continue
				}
				vis.Visit(nn)
				d := ix.dist(q, ix.arena.Vector(nn))
				ix.distComps.Add(1)
				neighborCnt++
				if result.Len() < ef || d < resMax {
					candidates.Push(queue.Item{Node: nn, Distance: d})
					result.Push(queue.Item{Node: nn, Distance: d})
					if result.Len() > ef {
						result.Pop()
					}
					top, _ = result.Top()
					resMax = top.Distance
				}
			}
			// When every neighbor at this layer passed the filter, the
			// narrower lower layers cannot contribute anything new.
			if !isBuild && !visitNextLayer {
				break
			}
		}

		ix.locks[closest.Node].Unlock()
	}

	ix.pool.Return(vis)
	return result
}

// SearchKNN returns up to k items nearest to q under the index's space,
// restricted to items satisfying f. A nil filter (or filter.None)
// searches unrestricted. An empty filter range yields an empty result.
func (ix *Index[A]) SearchKNN(q []float32, efs, k int, f filter.Filter) ([]model.SearchResult, error) {
	if len(q) != ix.dim {
		return nil, &ErrDimensionMismatch{Expected: ix.dim, Actual: len(q)}
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	curN := int(ix.curN.Load())
	if curN == 0 {
		return nil, nil
	}

	var (
		eps              []queue.Item
		pred             predicate[A]
		layerLo, layerHi int
	)

	switch ft := f.(type) {
	case nil, filter.None:
		ep := model.InternalID(rand.IntN(curN)) //nolint:gosec
		eps = append(eps, queue.Item{Node: ep, Distance: ix.lockedDist(q, ep)})
		ix.distComps.Add(1)
		layerLo, layerHi = ix.MaxLayer(), ix.MaxLayer()

	case filter.Range[A]:
		lo := ordertable.Key[A]{Att: ft.L, Label: 0}
		hi := ordertable.Key[A]{Att: ft.U, Label: model.MaxLabel}
		card, entries, err := ix.table.RangeCardinality(lo, hi)
		if err != nil {
			// No indexed attribute in range: empty result, not an error.
			return []model.SearchResult{}, nil
		}
		layerLo, layerHi = 0, ix.decideTopLayer(card)
		for _, ep := range entries {
			d := ix.dist(q, ix.arena.Vector(ep))
			ix.distComps.Add(1)
			eps = append(eps, queue.Item{Node: ep, Distance: d})
		}
		// Widened over (att, label) pairs so boundary attributes dedup
		// correctly when they repeat.
		pred = func(att A, label model.Label) bool {
			key := ordertable.Key[A]{Att: att, Label: label}
			return lo.LessEq(key) && key.LessEq(hi)
		}

	case *filter.Set[A]:
		for i := 0; i < curN && len(eps) < efs; i++ {
			id := model.InternalID(i)
			att, _ := ix.lockedKey(id)
			if ft.Test(att) {
				eps = append(eps, queue.Item{Node: id, Distance: ix.lockedDist(q, id)})
				ix.distComps.Add(1)
			}
		}
		layerLo, layerHi = 0, ix.MaxLayer()
		pred = func(att A, _ model.Label) bool { return ft.Test(att) }

	case filter.LabelFilter:
		for i := 0; i < curN && len(eps) < efs; i++ {
			id := model.InternalID(i)
			_, label := ix.lockedKey(id)
			if ft.TestLabel(label) {
				eps = append(eps, queue.Item{Node: id, Distance: ix.lockedDist(q, id)})
				ix.distComps.Add(1)
			}
		}
		layerLo, layerHi = 0, ix.MaxLayer()
		pred = func(_ A, label model.Label) bool { return ft.TestLabel(label) }

	default:
		return nil, ErrUnsupportedFilter
	}

	result := ix.searchCandidates(eps, q, pred, layerLo, layerHi, efs, model.InvalidID, false)
	for result.Len() > k {
		result.Pop()
	}

	out := make([]model.SearchResult, 0, result.Len())
	for _, it := range result.Items() {
		_, label := ix.lockedKey(it.Node)
		out = append(out, model.SearchResult{Distance: it.Distance, Label: label})
	}
	return out, nil
}

// lockedKey reads a record's attribute and label under its lock. The
// linear entry-point scans may hit records of in-flight inserts; those
// read as zero values rather than racing with the publication memcpy.
func (ix *Index[A]) lockedKey(id model.InternalID) (A, model.Label) {
	ix.locks[id].Lock()
	att := ix.attOf(id)
	label := *ix.arena.Label(id)
	ix.locks[id].Unlock()
	return att, label
}

// lockedDist computes the distance to a record's vector under its lock;
// see lockedKey.
func (ix *Index[A]) lockedDist(q []float32, id model.InternalID) float32 {
	ix.locks[id].Lock()
	d := ix.dist(q, ix.arena.Vector(id))
	ix.locks[id].Unlock()
	return d
}

// decideTopLayer picks the top search layer whose window best brackets
// the filter cardinality, preferring the side with the better coverage
// ratio.
func (ix *Index[A]) decideTopLayer(card int) int {
	ws := ix.windowSize
	idx := sort.SearchInts(ws, card)
	if idx == len(ws) || ws[idx] > card {
		idx--
	}

	var top int
	switch {
	case idx <= 0:
		top = 1
	case idx >= ix.wp:
		top = ix.wp
	default:
		cl, cu := idx-1, idx+1
		fracL := float64(ws[cl]) / float64(card)
		fracU := float64(card) / float64(min(ws[cu], ix.maxN))
		if fracL > fracU {
			top = idx
		} else {
			top = cu
		}
	}
	if maxLayer := ix.MaxLayer(); top > maxLayer {
		top = maxLayer
	}
	return top
}
