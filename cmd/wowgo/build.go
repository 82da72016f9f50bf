package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/wowgo"
	"github.com/hupe1980/wowgo/internal/fvecs"
	"github.com/hupe1980/wowgo/model"
)

var buildOpts struct {
	m             int
	efc           int
	basevec       string
	baseatt       string
	space         string
	threads       int
	indexLocation string
	o             int
	wp            int
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build an index from an fvecs base file and an attribute file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild()
	},
}

func init() {
	f := buildCmd.Flags()
	f.IntVar(&buildOpts.m, "m", 24, "max out-degree per node per layer")
	f.IntVar(&buildOpts.efc, "efc", 256, "construction beam width")
	f.StringVar(&buildOpts.basevec, "basevec", "", "base vectors (fvecs)")
	f.StringVar(&buildOpts.baseatt, "baseatt", "", `attribute file (raw int32), or "serial" for 0..n-1`)
	f.StringVar(&buildOpts.space, "space", "l2", "distance space: l2 or ip")
	f.IntVar(&buildOpts.threads, "threads", runtime.NumCPU(), "insert worker count")
	f.StringVar(&buildOpts.indexLocation, "index_location", "", "output index path")
	f.IntVar(&buildOpts.o, "o", 4, "window growth ratio")
	f.IntVar(&buildOpts.wp, "wp", 0, "max layer index; 0 auto-raises to cover the dataset")

	for _, name := range []string{"basevec", "baseatt", "index_location"} {
		_ = buildCmd.MarkFlagRequired(name)
	}
}

func runBuild() error {
	data, dim, n, err := fvecs.ReadVectors(buildOpts.basevec)
	if err != nil {
		return fmt.Errorf("read base vectors: %w", err)
	}

	var atts []int32
	if buildOpts.baseatt == "serial" {
		atts = make([]int32, n)
		for i := range atts {
			atts[i] = int32(i)
		}
	} else {
		atts, err = fvecs.ReadAttributes(buildOpts.baseatt)
		if err != nil {
			return fmt.Errorf("read attributes: %w", err)
		}
		if len(atts) < n {
			return fmt.Errorf("attribute file has %d entries for %d vectors", len(atts), n)
		}
	}

	wp := buildOpts.wp
	index, err := wowgo.New[int32](n, dim, buildOpts.space,
		wowgo.WithM(buildOpts.m),
		wowgo.WithEFConstruction(buildOpts.efc),
		wowgo.WithO(buildOpts.o),
		wowgo.WithWP(wp),
		wowgo.WithAutoRaiseWP(wp == 0),
		wowgo.WithLogger(wowgo.NewTextLogger(slog.LevelInfo)),
	)
	if err != nil {
		return err
	}
	defer index.Close()

	// Insert in random order; sequential attribute order builds the
	// narrow layers from adjacent items only and degrades the graph.
	ids := rand.Perm(n)

	start := time.Now()
	work := make(chan int, n)
	for _, i := range ids {
		work <- i
	}
	close(work)

	var eg errgroup.Group
	for w := 0; w < max(buildOpts.threads, 1); w++ {
		eg.Go(func() error {
			for i := range work {
				vec := data[i*dim : (i+1)*dim]
				if err := index.Insert(model.Label(i), vec, atts[i], false); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("built %d vectors in %s (%.0f inserts/s)\n", n, elapsed, float64(n)/elapsed.Seconds())

	if err := index.Save(buildOpts.indexLocation); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	fmt.Printf("index saved to %s\n", buildOpts.indexLocation)
	return nil
}
