package ml

import (
	"math/rand"
	"sort"
)

// treeParams controls the growth of a single tree
type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
}

type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	prob      float64
}

func (n treeNode) isLeaf() bool {
	return n.feature < 0
}

// decisionTree is a weighted CART classifier split on gini impurity.
// Leaf values are the weighted fraction of positive samples.
type decisionTree struct {
	nodes []treeNode
}

type treeBuilder struct {
	x      [][]float64
	y      []bool
	w      []float64
	params treeParams
	rng    *rand.Rand
	nodes  []treeNode
}

// fitTree grows a tree over the sample indices idx. idx may repeat samples (bootstrap).
func fitTree(x [][]float64, y []bool, w []float64, idx []int, params treeParams, rng *rand.Rand) *decisionTree {
	b := &treeBuilder{x: x, y: y, w: w, params: params, rng: rng}
	b.grow(idx, 0)
	return &decisionTree{nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	pos, tot := 0.0, 0.0
	for _, i := range idx {
		tot += b.w[i]
		if b.y[i] {
			pos += b.w[i]
		}
	}
	prob := 0.5
	if tot > 0 {
		prob = pos / tot
	}

	id := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{feature: -1, prob: prob})

	if depth >= b.params.maxDepth || len(idx) < b.params.minSamplesSplit || pos == 0 || pos == tot {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].feature = feature
	b.nodes[id].threshold = threshold
	b.nodes[id].left = l
	b.nodes[id].right = r
	return id
}

// bestSplit draws features in random order and evaluates up to maxFeatures of
// the non-constant ones, returning the split with the lowest weighted gini.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	nFeatures := len(b.x[idx[0]])
	sorted := make([]int, len(idx))

	bestFeature, bestThreshold, bestImpurity := -1, 0.0, 0.0
	visited := 0
	for _, f := range b.rng.Perm(nFeatures) {
		if visited >= b.params.maxFeatures {
			break
		}
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })
		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		totPos, tot := 0.0, 0.0
		for _, i := range sorted {
			tot += b.w[i]
			if b.y[i] {
				totPos += b.w[i]
			}
		}

		leftPos, leftTot := 0.0, 0.0
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			leftTot += b.w[i]
			if b.y[i] {
				leftPos += b.w[i]
			}
			nLeft := k + 1
			if nLeft < b.params.minSamplesLeaf || len(sorted)-nLeft < b.params.minSamplesLeaf {
				continue
			}
			cur, next := b.x[i][f], b.x[sorted[k+1]][f]
			if cur == next {
				continue
			}
			rightPos, rightTot := totPos-leftPos, tot-leftTot
			impurity := leftTot*gini(leftPos, leftTot) + rightTot*gini(rightPos, rightTot)
			if bestFeature < 0 || impurity < bestImpurity {
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				bestImpurity = impurity
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(pos, tot float64) float64 {
	if tot <= 0 {
		return 0
	}
	p := pos / tot
	return 1 - p*p - (1-p)*(1-p)
}

// predict returns the leaf probability for x
func (t *decisionTree) predict(x []float64) float64 {
	n := t.nodes[0]
	for !n.isLeaf() {
		if x[n.feature] <= n.threshold {
			n = t.nodes[n.left]
		} else {
			n = t.nodes[n.right]
		}
	}
	return n.prob
}

func (t *decisionTree) depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.nodes[i]
		if n.isLeaf() {
			return 0
		}
		return 1 + max(walk(n.left), walk(n.right))
	}
	return walk(0)
}
