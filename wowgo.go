package wowgo

import (
	"context"
	"time"

	"github.com/hupe1980/wowgo/distance"
	"github.com/hupe1980/wowgo/filter"
	"github.com/hupe1980/wowgo/model"
	"github.com/hupe1980/wowgo/wow"
)

// Re-exported core errors; see package wow for the full set.
var (
	ErrOutOfCapacity     = wow.ErrOutOfCapacity
	ErrInvalidK          = wow.ErrInvalidK
	ErrReplaceDeleted    = wow.ErrReplaceDeleted
	ErrUnsupportedFilter = wow.ErrUnsupportedFilter
)

// Index is the public facade over the core: it forwards operations and
// records logging and metrics around them.
type Index[A model.Attribute] struct {
	core    *wow.Index[A]
	logger  *Logger
	metrics MetricsCollector
}

// New allocates a fresh index with capacity for maxN vectors of the
// given dimension. space is "l2" or "ip".
func New[A model.Attribute](maxN, dim int, space string, optFns ...func(o *Options)) (*Index[A], error) {
	opts := applyOptions(optFns)

	sp, err := distance.ParseSpace(space)
	if err != nil {
		return nil, err
	}
	core, err := wow.New[A](maxN, dim, sp, coreOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Index[A]{core: core, logger: opts.Logger, metrics: opts.Metrics}, nil
}

// Open loads a persisted index from path. space is "l2" or "ip" and
// must match the space the index was built with.
func Open[A model.Attribute](path, space string, optFns ...func(o *Options)) (*Index[A], error) {
	opts := applyOptions(optFns)

	sp, err := distance.ParseSpace(space)
	if err != nil {
		return nil, err
	}
	core, err := wow.Open[A](path, sp, coreOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Index[A]{core: core, logger: opts.Logger, metrics: opts.Metrics}, nil
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}
	return opts
}

func coreOptions(opts Options) func(o *wow.Options) {
	return func(o *wow.Options) {
		o.M = opts.M
		o.EFConstruction = opts.EFConstruction
		o.O = opts.O
		o.WP = opts.WP
		o.AutoRaiseWP = opts.AutoRaiseWP
		o.Logger = opts.Logger.Logger
	}
}

// Insert adds one item. replaceDeleted is reserved and must be false.
func (ix *Index[A]) Insert(label model.Label, vec []float32, att A, replaceDeleted bool) error {
	start := time.Now()
	err := ix.core.Insert(label, vec, att, replaceDeleted)
	ix.metrics.RecordInsert(time.Since(start), err)
	ix.logger.LogInsert(context.Background(), uint64(label), len(vec), err)
	return err
}

// SearchKNN returns up to k nearest items satisfying f; a nil filter
// searches unrestricted.
func (ix *Index[A]) SearchKNN(q []float32, efs, k int, f filter.Filter) ([]model.SearchResult, error) {
	start := time.Now()
	results, err := ix.core.SearchKNN(q, efs, k, f)
	ix.metrics.RecordSearch(k, time.Since(start), err)
	ix.logger.LogSearch(context.Background(), k, len(results), err)
	return results, err
}

// Save persists the index to path.
func (ix *Index[A]) Save(path string) error {
	start := time.Now()
	err := ix.core.Save(path)
	ix.metrics.RecordSave(time.Since(start), err)
	ix.logger.LogSnapshot(context.Background(), path, err)
	return err
}

// Close releases index resources.
func (ix *Index[A]) Close() error { return ix.core.Close() }

// Dimension returns the vector dimension.
func (ix *Index[A]) Dimension() int { return ix.core.Dimension() }

// Size returns the number of inserted items.
func (ix *Index[A]) Size() int { return ix.core.Size() }

// MaxLayer returns the current top layer of the graph.
func (ix *Index[A]) MaxLayer() int { return ix.core.MaxLayer() }

// Stats returns the core profiling counters.
func (ix *Index[A]) Stats() wow.Stats { return ix.core.Stats() }

// Core returns the underlying core index.
func (ix *Index[A]) Core() *wow.Index[A] { return ix.core }
