package wow

import (
	"fmt"

	"github.com/hupe1980/wowgo/internal/queue"
	"github.com/hupe1980/wowgo/model"
	"github.com/hupe1980/wowgo/ordertable"
)

// Insert adds one item to the index. The order-table registration is
// deliberately the last step, so concurrent inserts can never select
// the new, not-yet-connected node as an entry point.
//
// replaceDeleted is reserved for a future deletion feature and must be
// false.
func (ix *Index[A]) Insert(label model.Label, vec []float32, att A, replaceDeleted bool) error {
	if replaceDeleted {
		return ErrReplaceDeleted
	}
	if len(vec) != ix.dim {
		return &ErrDimensionMismatch{Expected: ix.dim, Actual: len(vec)}
	}

	newKey := ordertable.Key[A]{Att: att, Label: label}

	// Claim an internal ID and, when the new count outgrows the widest
	// window, promote a layer - both under the max-layer lock.
	ix.maxLayerMu.Lock()
	if int(ix.curN.Load()) >= ix.maxN {
		ix.maxLayerMu.Unlock()
		return ErrOutOfCapacity
	}
	curNum := model.InternalID(ix.curN.Load())
	ix.curN.Add(1)

	if curNum == 0 {
		ix.publishRecord(curNum, label, att, vec, nil)
		ix.table.Insert(newKey, curNum)
		ix.maxLayerMu.Unlock()
		return nil
	}

	if int(ix.curN.Load()) > ix.windowSize[ix.curMaxLayer.Load()] {
		if int(ix.curMaxLayer.Load()) == ix.wp {
			ix.curN.Add(^uint32(0)) // roll back the claim
			ix.maxLayerMu.Unlock()
			return fmt.Errorf("%w: no space for a new layer beyond wp=%d", ErrOutOfCapacity, ix.wp)
		}
		ix.promoteLayer()
	}
	maxLevelCopy := int(ix.curMaxLayer.Load())
	ix.maxLayerMu.Unlock()

	// Candidate selection per layer, widest window first. Candidates
	// surviving a layer are retained for the next, narrower one.
	tmpLinks := make([][]queue.Item, maxLevelCopy+1)
	curAll := make([]queue.Item, 0, ix.efc)

	seen := ix.pool.Get()
	seen.Clear()

	for layer := maxLevelCopy; layer >= 0; layer-- {
		halfWindow := ix.windowSize[layer] / 2
		loK, hiK, entries := ix.table.Window(newKey, halfWindow)

		for _, ep := range entries {
			if seen.Visited(ep) {
				continue
			}
			d := ix.dist(vec, ix.arena.Vector(ep))
			ix.distComps.Add(1)
			curAll = append(curAll, queue.Item{Node: ep, Distance: d})
		}

		// Drop retained candidates that fall outside this layer's
		// window; the survivors seed the beam search.
		kept := make([]queue.Item, 0, len(curAll))
		for _, c := range curAll {
			key := ix.keyOf(c.Node)
			if loK.LessEq(key) && key.LessEq(hiK) {
				kept = append(kept, c)
				seen.Visit(c.Node)
			}
		}
		curAll = kept

		// Retained candidates usually suffice; searching the still
		// incomplete graph is only needed when they do not. This keeps
		// build time at one graph search per layer in the worst case.
		if len(curAll) < ix.m {
			pred := func(a A, l model.Label) bool {
				key := ordertable.Key[A]{Att: a, Label: l}
				return loK.LessEq(key) && key.LessEq(hiK)
			}
			found := ix.searchCandidates(curAll, vec, pred, layer, maxLevelCopy, ix.efc, curNum, true)
			for _, c := range found.Items() {
				if c.Node == curNum {
					ix.pool.Return(seen)
					return &ErrInternalInvariant{Reason: "search returned the node under construction"}
				}
				if !seen.Visited(c.Node) {
					curAll = append(curAll, c)
					seen.Visit(c.Node)
				}
			}
		}

		tmpLinks[layer] = ix.pruneByHeuristic(curAll, ix.m/2)
	}
	ix.pool.Return(seen)

	if err := ix.publishRecord(curNum, label, att, vec, tmpLinks); err != nil {
		return err
	}

	// Back-edges: link each new neighbor back, pruning when its list
	// is full. Locks are taken one node at a time.
	for layer := maxLevelCopy; layer >= 0; layer-- {
		for _, nn := range tmpLinks[layer] {
			if err := ix.linkBack(nn, curNum, layer); err != nil {
				return err
			}
		}
	}

	ix.table.Insert(newKey, curNum)
	return nil
}

// promoteLayer raises the top layer by one and copies every non-empty
// link list of the previous top into the new one; the larger window
// trivially subsumes the smaller. Caller holds the max-layer lock.
func (ix *Index[A]) promoteLayer() {
	prev := int(ix.curMaxLayer.Load())
	next := prev + 1
	ix.logger.Info("raising layer", "from", prev, "to", next)
	ix.curMaxLayer.Store(int32(next))

	for id := model.InternalID(0); id < model.InternalID(ix.curN.Load()); id++ {
		ix.locks[id].Lock()
		lower := ix.arena.LinkList(id, prev)
		if lower[ix.m] != 0 {
			copy(ix.arena.LinkList(id, next), lower)
		}
		ix.locks[id].Unlock()
	}
}

// publishRecord writes label, attribute, vector and the per-layer link
// lists of a fresh node under its lock. links may be nil for the very
// first node, whose lists are all empty.
func (ix *Index[A]) publishRecord(id model.InternalID, label model.Label, att A, vec []float32, links [][]queue.Item) error {
	ix.locks[id].Lock()
	defer ix.locks[id].Unlock()

	*ix.arena.Label(id) = label
	*(*A)(ix.arena.AttPointer(id)) = att
	copy(ix.arena.Vector(id), vec)

	for layer := 0; layer <= ix.wp; layer++ {
		ll := ix.arena.LinkList(id, layer)
		if layer >= len(links) {
			ll[ix.m] = 0
			continue
		}
		ll[ix.m] = uint32(len(links[layer]))
		for i, c := range links[layer] {
			if c.Node == id {
				return &ErrInternalInvariant{Reason: "self-loop in pruned neighbor list"}
			}
			if ll[i] != 0 {
				return &ErrInternalInvariant{Reason: "newly added node has a dirty link list"}
			}
			ll[i] = uint32(c.Node)
		}
	}
	return nil
}

// linkBack appends newID to nn's list at the given layer, or re-prunes
// the list when it is already full: distances from nn to its current
// neighbors are recomputed, out-of-window neighbors dropped through the
// order table, the new edge added, and the result pruned back to M.
func (ix *Index[A]) linkBack(nn queue.Item, newID model.InternalID, layer int) error {
	ix.locks[nn.Node].Lock()
	defer ix.locks[nn.Node].Unlock()

	ll := ix.arena.LinkList(nn.Node, layer)
	sz := int(ll[ix.m])
	if sz < ix.m {
		ll[sz] = uint32(newID)
		ll[ix.m] = uint32(sz + 1)
		return nil
	}

	cands := make([]ordertable.Candidate[A], 0, sz+1)
	for i := 0; i < sz; i++ {
		nid := model.InternalID(ll[i])
		d := ix.dist(ix.arena.Vector(nn.Node), ix.arena.Vector(nid))
		ix.distComps.Add(1)
		cands = append(cands, ordertable.Candidate[A]{Dist: d, ID: nid, Key: ix.keyOf(nid)})
	}

	halfWindow := ix.windowSize[layer] / 2
	inWindow, err := ix.table.InWindow(ix.keyOf(nn.Node), halfWindow, cands)
	if err != nil {
		return &ErrInternalInvariant{Reason: "back-edge target missing from order table"}
	}

	items := make([]queue.Item, 0, len(inWindow)+1)
	for _, c := range inWindow {
		items = append(items, queue.Item{Node: c.ID, Distance: c.Dist})
	}
	items = append(items, queue.Item{Node: newID, Distance: nn.Distance})

	pruned := ix.pruneByHeuristic(items, ix.m)
	ll[ix.m] = uint32(len(pruned))
	for i, c := range pruned {
		ll[i] = uint32(c.Node)
	}
	return nil
}
