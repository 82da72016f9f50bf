// Package wow implements the layered windowed proximity graph at the
// heart of wowgo. Every indexed item carries an opaque label, a scalar
// attribute and a fixed-dimension vector; each graph layer connects
// items within an exponentially growing window in attribute order, so a
// range-filtered search can pick the layer matching its filter's
// cardinality and never leave the filtered region.
package wow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/wowgo/distance"
	"github.com/hupe1980/wowgo/internal/arena"
	"github.com/hupe1980/wowgo/internal/visited"
	"github.com/hupe1980/wowgo/model"
	"github.com/hupe1980/wowgo/ordertable"
)

// Options represents the options for configuring the index.
type Options struct {
	// M is the maximum out-degree per node per layer.
	M int

	// EFConstruction is the beam width used during build.
	EFConstruction int

	// O is the geometric ratio between successive window sizes.
	O int

	// WP is the maximum permitted layer index; it bounds the memory
	// spent on link lists per node.
	WP int

	// AutoRaiseWP raises WP so that the widest window covers the whole
	// index. With AutoRaiseWP false the window sequence is truncated at
	// WP and inserts beyond the widest window fail.
	AutoRaiseWP bool

	// Logger receives structural events (layer raises, load summaries).
	Logger *slog.Logger
}

// DefaultOptions contains the default options for the index.
var DefaultOptions = Options{
	M:              24,
	EFConstruction: 256,
	O:              4,
	WP:             10,
	AutoRaiseWP:    true,
}

// Index is a windowed attribute-aware ANN index over vectors of a fixed
// dimension, generic over the attribute type.
type Index[A model.Attribute] struct {
	maxN int
	dim  int
	wp   int
	o    int
	m    int
	efc  int

	space distance.Space
	dist  distance.Func

	curN        atomic.Uint32
	curMaxLayer atomic.Int32

	// maxLayerMu serialises internal-ID allocation and layer promotion
	// only; it is ordered strictly before any per-node lock.
	maxLayerMu sync.Mutex
	locks      []sync.Mutex

	arena *arena.Arena
	table *ordertable.Table[A]
	pool  *visited.Pool

	windowSize []int

	logger *slog.Logger

	distComps atomic.Uint64
	hops      atomic.Uint64
}

// New allocates a fresh index with capacity for maxN vectors of the
// given dimension.
func New[A model.Attribute](maxN, dim int, space distance.Space, optFns ...func(o *Options)) (*Index[A], error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	dist, err := distance.Provider(space)
	if err != nil {
		return nil, err
	}
	if opts.M < 2 {
		// M/2 is the per-layer degree budget of a fresh node; below 2
		// every node would be born isolated.
		opts.M = 2
	}
	if opts.O < 2 {
		// The window sequence must grow, or it never covers the index.
		opts.O = 2
	}
	if opts.WP < 0 {
		opts.WP = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(discardHandler{})
	}

	windowSize, wp := buildWindowSizes(maxN, opts.O, opts.WP, opts.AutoRaiseWP, logger)

	attSize := int(unsafe.Sizeof(*new(A)))
	layout := arena.NewLayout(dim, attSize, opts.M, wp)
	ar, err := arena.New(maxN, layout)
	if err != nil {
		return nil, err
	}

	return &Index[A]{
		maxN:       maxN,
		dim:        dim,
		wp:         wp,
		o:          opts.O,
		m:          opts.M,
		efc:        opts.EFConstruction,
		space:      space,
		dist:       dist,
		locks:      make([]sync.Mutex, maxN),
		arena:      ar,
		table:      ordertable.New[A](maxN),
		pool:       visited.NewPool(maxN),
		windowSize: windowSize,
		logger:     logger,
	}, nil
}

// buildWindowSizes computes the geometric window sequence
// [2, 2o, 2o^2, ...] covering maxN, reconciling it with wp.
func buildWindowSizes(maxN, o, wp int, autoRaise bool, logger *slog.Logger) ([]int, int) {
	ws := []int{2}
	for ws[len(ws)-1] < maxN {
		ws = append(ws, o*ws[len(ws)-1])
	}
	if wp+1 < len(ws) {
		if autoRaise {
			logger.Info("raised wp to cover all items", "wp", len(ws)-1)
			wp = len(ws) - 1
		} else {
			logger.Warn("window sequence truncated below capacity", "wp", wp)
			ws = ws[:wp+1]
		}
	} else {
		for len(ws) < wp+2 {
			ws = append(ws, o*ws[len(ws)-1])
		}
	}
	return ws, wp
}

// Close releases the arena. The index must not be used afterwards.
func (ix *Index[A]) Close() error {
	return ix.arena.Close()
}

// Dimension returns the vector dimension.
func (ix *Index[A]) Dimension() int { return ix.dim }

// MaxElements returns the capacity of the index.
func (ix *Index[A]) MaxElements() int { return ix.maxN }

// Size returns the number of inserted items.
func (ix *Index[A]) Size() int { return int(ix.curN.Load()) }

// MaxLayer returns the current top layer of the graph.
func (ix *Index[A]) MaxLayer() int { return int(ix.curMaxLayer.Load()) }

// M returns the maximum out-degree per node per layer.
func (ix *Index[A]) M() int { return ix.m }

// EFConstruction returns the build beam width.
func (ix *Index[A]) EFConstruction() int { return ix.efc }

// Space returns the distance space.
func (ix *Index[A]) Space() distance.Space { return ix.space }

func (ix *Index[A]) attOf(id model.InternalID) A {
	return *(*A)(ix.arena.AttPointer(id))
}

func (ix *Index[A]) keyOf(id model.InternalID) ordertable.Key[A] {
	return ordertable.Key[A]{Att: ix.attOf(id), Label: *ix.arena.Label(id)}
}

// discardHandler drops every record; it keeps the hot path free of nil
// checks when no logger is configured.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
