package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/wowgo/model"
)

func TestRecall(t *testing.T) {
	gt := []model.Label{1, 2, 3, 4}

	assert.Equal(t, 1.0, Recall(gt, []model.Label{4, 3, 2, 1}))
	assert.Equal(t, 0.5, Recall(gt, []model.Label{1, 2, 9, 10}))
	assert.Equal(t, 0.0, Recall(gt, []model.Label{9, 10}))
	assert.Equal(t, 1.0, Recall(nil, []model.Label{1}), "empty ground truth counts as recalled")
}

func TestMeanRecall(t *testing.T) {
	gt := [][]model.Label{{1, 2}, {3, 4}}
	res := [][]model.Label{{1, 2}, {3, 9}}
	assert.InDelta(t, 0.75, MeanRecall(gt, res), 1e-9)

	assert.Equal(t, 0.0, MeanRecall(nil, nil))
}
