package ml

import (
	"math"
	"sort"
)

// varianceFilter returns the columns whose population variance exceeds threshold
func varianceFilter(x [][]float64, threshold float64) (kept []int, variances []float64) {
	if len(x) == 0 {
		return nil, nil
	}
	n := float64(len(x))
	for j := range x[0] {
		var sum, sq float64
		for _, row := range x {
			sum += row[j]
		}
		m := sum / n
		for _, row := range x {
			d := row[j] - m
			sq += d * d
		}
		v := sq / n
		if v > threshold {
			kept = append(kept, j)
			variances = append(variances, v)
		}
	}
	return kept, variances
}

// fScores computes the one-way ANOVA F statistic of each column against the
// binary target. Columns with no within-class spread score +Inf when the class
// means differ and NaN otherwise.
func fScores(x [][]float64, y []bool, cols []int) []float64 {
	scores := make([]float64, len(cols))
	n := float64(len(x))
	for k, j := range cols {
		var sumPos, sumNeg, nPos, nNeg float64
		for i, row := range x {
			if y[i] {
				sumPos += row[j]
				nPos++
			} else {
				sumNeg += row[j]
				nNeg++
			}
		}
		if nPos == 0 || nNeg == 0 || n <= 2 {
			scores[k] = math.NaN()
			continue
		}
		meanPos, meanNeg := sumPos/nPos, sumNeg/nNeg
		grand := (sumPos + sumNeg) / n

		ssb := nPos*(meanPos-grand)*(meanPos-grand) + nNeg*(meanNeg-grand)*(meanNeg-grand)
		var ssw float64
		for i, row := range x {
			if y[i] {
				ssw += (row[j] - meanPos) * (row[j] - meanPos)
			} else {
				ssw += (row[j] - meanNeg) * (row[j] - meanNeg)
			}
		}
		// two groups: 1 between-group and n-2 within-group degrees of freedom
		msb := ssb
		msw := ssw / (n - 2)
		switch {
		case msw == 0 && msb > 0:
			scores[k] = math.Inf(1)
		case msw == 0:
			scores[k] = math.NaN()
		default:
			scores[k] = msb / msw
		}
	}
	return scores
}

// selectK returns how many of m columns survive univariate selection
func selectK(m, minKeep int, fraction float64) int {
	return min(max(minKeep, int(float64(m)*fraction)), m)
}

// topK keeps the k best scoring columns, NaN ranking last, and returns them in
// ascending column order.
func topK(cols []int, scores []float64, k int) []int {
	order := make([]int, len(cols))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := scores[order[a]], scores[order[b]]
		if math.IsNaN(sb) {
			return !math.IsNaN(sa)
		}
		if math.IsNaN(sa) {
			return false
		}
		return sa > sb
	})
	if k > len(order) {
		k = len(order)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = cols[order[i]]
	}
	sort.Ints(out)
	return out
}
