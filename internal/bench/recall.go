// Package bench computes recall against exact ground truth.
package bench

import (
	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/wowgo/model"
)

// Recall returns the fraction of ground-truth labels recovered by one
// result list.
func Recall(gt, res []model.Label) float64 {
	if len(gt) == 0 {
		return 1
	}
	truth := make(map[model.Label]struct{}, len(gt))
	for _, l := range gt {
		truth[l] = struct{}{}
	}
	correct := 0
	for _, l := range res {
		if _, ok := truth[l]; ok {
			correct++
		}
	}
	return float64(correct) / float64(len(gt))
}

// MeanRecall returns the per-query recalls averaged over the query set.
func MeanRecall(gt, res [][]model.Label) float64 {
	n := min(len(gt), len(res))
	if n == 0 {
		return 0
	}
	recalls := make([]float64, n)
	for i := 0; i < n; i++ {
		recalls[i] = Recall(gt[i], res[i])
	}
	return stat.Mean(recalls, nil)
}
