package main

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/wowgo"
	"github.com/hupe1980/wowgo/filter"
	"github.com/hupe1980/wowgo/internal/bench"
	"github.com/hupe1980/wowgo/internal/fvecs"
	"github.com/hupe1980/wowgo/model"
)

var searchOpts struct {
	indexLocation string
	space         string
	queryVec      string
	queryRng      string
	gtFile        string
	k             int
	efs           int
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run range-filtered queries against a saved index",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch()
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchOpts.indexLocation, "index_location", "", "index path")
	f.StringVar(&searchOpts.space, "space", "l2", "distance space: l2 or ip")
	f.StringVar(&searchOpts.queryVec, "query_vec", "", "query vectors (fvecs)")
	f.StringVar(&searchOpts.queryRng, "query_rng", "", "query ranges (int32 pairs)")
	f.StringVar(&searchOpts.gtFile, "gt_file", "", "ground truth file (optional)")
	f.IntVar(&searchOpts.k, "k", 10, "neighbors per query")
	f.IntVar(&searchOpts.efs, "efs", 128, "search beam width")

	for _, name := range []string{"index_location", "query_vec", "query_rng"} {
		_ = searchCmd.MarkFlagRequired(name)
	}
}

func runSearch() error {
	index, err := wowgo.Open[int32](searchOpts.indexLocation, searchOpts.space,
		wowgo.WithLogger(wowgo.NewTextLogger(slog.LevelInfo)))
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer index.Close()

	queries, dim, nq, err := fvecs.ReadVectors(searchOpts.queryVec)
	if err != nil {
		return fmt.Errorf("read query vectors: %w", err)
	}
	if dim != index.Dimension() {
		return fmt.Errorf("query dimension %d does not match index dimension %d", dim, index.Dimension())
	}
	ranges, err := fvecs.ReadRanges(searchOpts.queryRng)
	if err != nil {
		return fmt.Errorf("read query ranges: %w", err)
	}
	if len(ranges) < nq {
		return fmt.Errorf("range file has %d entries for %d queries", len(ranges), nq)
	}

	results := make([][]model.Label, nq)
	start := time.Now()
	for i := 0; i < nq; i++ {
		q := queries[i*dim : (i+1)*dim]
		res, err := index.SearchKNN(q, searchOpts.efs, searchOpts.k,
			filter.NewRange(ranges[i].L, ranges[i].U))
		if err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}
		sort.Slice(res, func(a, b int) bool { return res[a].Distance < res[b].Distance })
		labels := make([]model.Label, len(res))
		for j, r := range res {
			labels[j] = r.Label
		}
		results[i] = labels
	}
	elapsed := time.Since(start)

	fmt.Printf("ran %d queries in %s (%.0f qps)\n", nq, elapsed, float64(nq)/elapsed.Seconds())
	stats := index.Stats()
	fmt.Printf("dist comps: %d, hops: %d\n", stats.DistComps, stats.Hops)

	if searchOpts.gtFile != "" {
		gt, err := fvecs.ReadGroundTruth(searchOpts.gtFile)
		if err != nil {
			return fmt.Errorf("read ground truth: %w", err)
		}
		fmt.Printf("mean recall@%d: %.4f\n", searchOpts.k, bench.MeanRecall(gt, results))
	}
	return nil
}
