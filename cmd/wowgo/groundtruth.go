package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/wowgo/distance"
	"github.com/hupe1980/wowgo/internal/fvecs"
	"github.com/hupe1980/wowgo/internal/queue"
	"github.com/hupe1980/wowgo/model"
)

var gtOpts struct {
	basevec  string
	baseatt  string
	queryVec string
	queryRng string
	space    string
	k        int
	out      string
}

var groundTruthCmd = &cobra.Command{
	Use:   "groundtruth",
	Short: "Generate exact top-k ground truth for range-filtered queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGroundTruth()
	},
}

func init() {
	f := groundTruthCmd.Flags()
	f.StringVar(&gtOpts.basevec, "basevec", "", "base vectors (fvecs)")
	f.StringVar(&gtOpts.baseatt, "baseatt", "", `attribute file (raw int32), or "serial" for 0..n-1`)
	f.StringVar(&gtOpts.queryVec, "query_vec", "", "query vectors (fvecs)")
	f.StringVar(&gtOpts.queryRng, "query_rng", "", "query ranges (int32 pairs)")
	f.StringVar(&gtOpts.space, "space", "l2", "distance space: l2 or ip")
	f.IntVar(&gtOpts.k, "k", 10, "neighbors per query")
	f.StringVar(&gtOpts.out, "out", "", "output ground truth path")

	for _, name := range []string{"basevec", "baseatt", "query_vec", "query_rng", "out"} {
		_ = groundTruthCmd.MarkFlagRequired(name)
	}
}

func runGroundTruth() error {
	sp, err := distance.ParseSpace(gtOpts.space)
	if err != nil {
		return err
	}
	dist, err := distance.Provider(sp)
	if err != nil {
		return err
	}

	base, dim, nb, err := fvecs.ReadVectors(gtOpts.basevec)
	if err != nil {
		return fmt.Errorf("read base vectors: %w", err)
	}
	var atts []int32
	if gtOpts.baseatt == "serial" {
		atts = make([]int32, nb)
		for i := range atts {
			atts[i] = int32(i)
		}
	} else {
		atts, err = fvecs.ReadAttributes(gtOpts.baseatt)
		if err != nil {
			return fmt.Errorf("read attributes: %w", err)
		}
		if len(atts) < nb {
			return fmt.Errorf("attribute file has %d entries for %d vectors", len(atts), nb)
		}
	}
	queries, qdim, nq, err := fvecs.ReadVectors(gtOpts.queryVec)
	if err != nil {
		return fmt.Errorf("read query vectors: %w", err)
	}
	if qdim != dim {
		return fmt.Errorf("query dimension %d does not match base dimension %d", qdim, dim)
	}
	ranges, err := fvecs.ReadRanges(gtOpts.queryRng)
	if err != nil {
		return fmt.Errorf("read query ranges: %w", err)
	}
	if len(ranges) < nq {
		return fmt.Errorf("range file has %d entries for %d queries", len(ranges), nq)
	}

	fmt.Printf("generating ground truth for %d queries over %d vectors\n", nq, nb)
	gt := make([][]model.Label, nq)
	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for iq := 0; iq < nq; iq++ {
		eg.Go(func() error {
			q := queries[iq*dim : (iq+1)*dim]
			rng := ranges[iq]
			top := queue.NewMax(gtOpts.k + 1)
			for ib := 0; ib < nb; ib++ {
				if atts[ib] < rng.L || atts[ib] > rng.U {
					continue
				}
				d := dist(q, base[ib*dim:(ib+1)*dim])
				top.Push(queue.Item{Node: model.InternalID(ib), Distance: d})
				if top.Len() > gtOpts.k {
					top.Pop()
				}
			}
			labels := make([]model.Label, 0, top.Len())
			for _, it := range top.Items() {
				labels = append(labels, model.Label(it.Node))
			}
			gt[iq] = labels
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if err := fvecs.WriteGroundTruth(gtOpts.out, gt); err != nil {
		return fmt.Errorf("write ground truth: %w", err)
	}
	fmt.Printf("ground truth saved to %s\n", gtOpts.out)
	return nil
}
