package ml

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectK(t *testing.T) {
	assert.Equal(t, 13, selectK(17, 10, 0.8))
	assert.Equal(t, 10, selectK(12, 10, 0.8))
	assert.Equal(t, 5, selectK(5, 10, 0.8))
	assert.Equal(t, 0, selectK(0, 10, 0.8))
}

func TestVarianceFilter(t *testing.T) {
	x := [][]float64{
		{1, 0, 5},
		{1, 1, 5.01},
		{1, 0, 5},
		{1, 1, 5.01},
	}
	kept, variances := varianceFilter(x, 0.01)
	assert.Equal(t, []int{1}, kept)
	assert.InDelta(t, 0.25, variances[0], 1e-12)
}

func TestFScoresRankSignalAboveNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	x := make([][]float64, 50)
	y := make([]bool, 50)
	for i := range x {
		y[i] = i%2 == 0
		signal := rng.Float64()
		if y[i] {
			signal += 3
		}
		x[i] = []float64{rng.Float64(), signal, 7}
	}
	scores := fScores(x, y, []int{0, 1, 2})
	assert.Greater(t, scores[1], scores[0])
	assert.True(t, math.IsNaN(scores[2]))
}

func TestFScoresPerfectSeparation(t *testing.T) {
	x := [][]float64{{0}, {0}, {1}, {1}}
	y := []bool{false, false, true, true}
	scores := fScores(x, y, []int{0})
	assert.True(t, math.IsInf(scores[0], 1))
}

func TestTopKOrdersNaNLast(t *testing.T) {
	cols := []int{3, 5, 7, 9}
	scores := []float64{math.NaN(), 2, math.Inf(1), 1}
	assert.Equal(t, []int{5, 7}, topK(cols, scores, 2))
	assert.Equal(t, []int{3, 5, 7, 9}, topK(cols, scores, 10))
}

func TestFitTreeSeparates(t *testing.T) {
	x := make([][]float64, 40)
	y := make([]bool, 40)
	w := make([]float64, 40)
	idx := make([]int, 40)
	for i := range x {
		x[i] = []float64{float64(i)}
		y[i] = i >= 20
		w[i] = 1
		idx[i] = i
	}
	params := treeParams{maxDepth: 12, minSamplesSplit: 10, minSamplesLeaf: 5, maxFeatures: 1}
	tree := fitTree(x, y, w, idx, params, rand.New(rand.NewSource(1)))

	assert.Equal(t, 0.0, tree.predict([]float64{3}))
	assert.Equal(t, 1.0, tree.predict([]float64{35}))
	assert.LessOrEqual(t, tree.depth(), 12)
}

func TestFitTreeRespectsMaxDepth(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := make([][]float64, 200)
	y := make([]bool, 200)
	w := make([]float64, 200)
	idx := make([]int, 200)
	for i := range x {
		x[i] = []float64{rng.Float64(), rng.Float64()}
		y[i] = rng.Intn(2) == 1
		w[i] = 1
		idx[i] = i
	}
	params := treeParams{maxDepth: 3, minSamplesSplit: 2, minSamplesLeaf: 1, maxFeatures: 2}
	tree := fitTree(x, y, w, idx, params, rng)
	assert.LessOrEqual(t, tree.depth(), 3)
}

func TestBalancedWeights(t *testing.T) {
	y := []bool{true, false, false, false}
	w := balancedWeights(y, []float64{1, 1, 1, 2})
	assert.InDelta(t, 2.0, w[0], 1e-12)
	assert.InDelta(t, 4.0/6.0, w[1], 1e-12)
	assert.InDelta(t, 8.0/6.0, w[3], 1e-12)
}

func TestMaxFeaturesFor(t *testing.T) {
	assert.Equal(t, 1, maxFeaturesFor(1))
	assert.Equal(t, 3, maxFeaturesFor(10))
	assert.Equal(t, 4, maxFeaturesFor(17))
}
