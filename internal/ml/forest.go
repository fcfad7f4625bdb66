package ml

import (
	"math"
	"math/rand"
)

// forest is a bagged ensemble of decision trees
type forest struct {
	trees []*decisionTree
}

// fitForest trains numTrees trees on bootstrap resamples. Tree t draws from
// its own source seeded with seed+t so results do not depend on scheduling.
func fitForest(x [][]float64, y []bool, w []float64, numTrees int, params treeParams, seed int64) *forest {
	n := len(x)
	f := &forest{trees: make([]*decisionTree, numTrees)}
	for t := 0; t < numTrees; t++ {
		rng := rand.New(rand.NewSource(seed + int64(t)))
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.trees[t] = fitTree(x, y, w, idx, params, rng)
	}
	return f
}

// votes returns each tree's probability for x
func (f *forest) votes(x []float64) []float64 {
	out := make([]float64, len(f.trees))
	for i, t := range f.trees {
		out[i] = t.predict(x)
	}
	return out
}

// balancedWeights multiplies sample weights by n/(2*n_class) for each row's class
func balancedWeights(y []bool, w []float64) []float64 {
	pos := 0
	for _, v := range y {
		if v {
			pos++
		}
	}
	n := float64(len(y))
	neg := len(y) - pos
	out := make([]float64, len(y))
	for i, v := range y {
		cw := 1.0
		if v && pos > 0 {
			cw = n / (2 * float64(pos))
		} else if !v && neg > 0 {
			cw = n / (2 * float64(neg))
		}
		out[i] = w[i] * cw
	}
	return out
}

// maxFeaturesFor returns floor(sqrt(p)), at least 1
func maxFeaturesFor(p int) int {
	return max(1, int(math.Sqrt(float64(p))))
}
