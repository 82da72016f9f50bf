package wow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/hupe1980/wowgo/distance"
	"github.com/hupe1980/wowgo/internal/arena"
	"github.com/hupe1980/wowgo/internal/visited"
	"github.com/hupe1980/wowgo/model"
	"github.com/hupe1980/wowgo/ordertable"
	"github.com/hupe1980/wowgo/persistence"
)

// headerFieldCount is the number of fixed-width header fields; see Save
// for the field order. All fields are little-endian uint64.
const headerFieldCount = 14

// Save writes the header followed by the raw arena bytes. The arena is
// captured verbatim; the order table is rebuilt on load by scanning
// records.
func (ix *Index[A]) Save(path string) error {
	return persistence.SaveToFile(path, func(w io.Writer) error {
		bw := persistence.NewWriter(w)
		layout := ix.arena.Layout()
		fields := [headerFieldCount]uint64{
			uint64(ix.maxN),
			uint64(ix.dim),
			uint64(ix.wp),
			uint64(ix.o),
			uint64(ix.m),
			uint64(ix.efc),
			uint64(ix.curN.Load()),
			uint64(ix.curMaxLayer.Load()),
			layout.RecordSize,
			uint64(len(ix.arena.Bytes())),
			layout.OffsetLabel,
			layout.OffsetAtt,
			layout.OffsetVec,
			layout.OffsetLinks,
		}
		for _, f := range fields {
			if err := bw.WriteUint64(f); err != nil {
				return err
			}
		}
		return bw.WriteBytes(ix.arena.Bytes())
	})
}

// Open reads an index saved by Save. The record size is recomputed from
// the header parameters and the load fails with
// persistence.ErrCorruptFile when it disagrees with the stored value.
func Open[A model.Attribute](path string, space distance.Space, optFns ...func(o *Options)) (*Index[A], error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(discardHandler{})
	}

	dist, err := distance.Provider(space)
	if err != nil {
		return nil, err
	}

	var ix *Index[A]
	err = persistence.LoadFromFile(path, func(r io.Reader) error {
		br := persistence.NewReader(r)
		var fields [headerFieldCount]uint64
		for i := range fields {
			v, err := br.ReadUint64()
			if err != nil {
				return err
			}
			fields[i] = v
		}

		maxN := int(fields[0])
		dim := int(fields[1])
		wp := int(fields[2])
		o := int(fields[3])
		m := int(fields[4])
		efc := int(fields[5])
		curN := uint32(fields[6])
		curMaxLayer := int32(fields[7])
		recordSize := fields[8]
		arenaBytes := fields[9]

		attSize := int(unsafe.Sizeof(*new(A)))
		layout := arena.NewLayout(dim, attSize, m, wp)
		if layout.RecordSize != recordSize {
			return fmt.Errorf("%w: stored record size %d, recomputed %d",
				persistence.ErrCorruptFile, recordSize, layout.RecordSize)
		}
		if arenaBytes != uint64(maxN)*layout.RecordSize {
			return fmt.Errorf("%w: arena size %d does not match %d records of %d bytes",
				persistence.ErrCorruptFile, arenaBytes, maxN, layout.RecordSize)
		}
		if layout.OffsetLabel != fields[10] || layout.OffsetAtt != fields[11] ||
			layout.OffsetVec != fields[12] || layout.OffsetLinks != fields[13] {
			return fmt.Errorf("%w: stored field offsets disagree with layout", persistence.ErrCorruptFile)
		}

		ar, err := arena.New(maxN, layout)
		if err != nil {
			return err
		}
		if err := br.ReadFull(ar.Bytes()); err != nil {
			_ = ar.Close()
			return err
		}

		ix = &Index[A]{
			maxN:       maxN,
			dim:        dim,
			wp:         wp,
			o:          o,
			m:          m,
			efc:        efc,
			space:      space,
			dist:       dist,
			locks:      make([]sync.Mutex, maxN),
			arena:      ar,
			table:      ordertable.New[A](maxN),
			pool:       visited.NewPool(maxN),
			windowSize: loadWindowSizes(o, wp),
			logger:     logger,
		}
		ix.curN.Store(curN)
		ix.curMaxLayer.Store(curMaxLayer)

		// Rebuild the order table by scanning published records.
		for id := model.InternalID(0); id < model.InternalID(curN); id++ {
			ix.table.Insert(ix.keyOf(id), id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ix.logSummary()
	return ix, nil
}

// loadWindowSizes rebuilds the window sequence for a persisted index;
// the parameters already reconcile wp, so no raising or truncation.
func loadWindowSizes(o, wp int) []int {
	ws := []int{2}
	for len(ws) < wp+1 {
		ws = append(ws, o*ws[len(ws)-1])
	}
	return ws
}

// logSummary reports the loaded index parameters; the per-layer average
// out-degree scan is only paid when debug logging is enabled.
func (ix *Index[A]) logSummary() {
	ix.logger.Info("index loaded",
		"max_elements", ix.maxN,
		"dimension", ix.dim,
		"wp", ix.wp,
		"o", ix.o,
		"m", ix.m,
		"efc", ix.efc,
		"size", ix.Size(),
		"max_layer", ix.MaxLayer(),
	)
	if !ix.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	curN := ix.curN.Load()
	if curN == 0 {
		return
	}
	for layer := 0; layer <= ix.MaxLayer(); layer++ {
		degrees := 0
		for id := model.InternalID(0); id < model.InternalID(curN); id++ {
			degrees += int(ix.arena.LinkList(id, layer)[ix.m])
		}
		ix.logger.Debug("layer degree", "layer", layer, "avg_out_degree", degrees/int(curN))
	}
}
