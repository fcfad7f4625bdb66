package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

func tail(xs []float64, n int) []float64 {
	if n >= len(xs) {
		return xs
	}
	return xs[len(xs)-n:]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// stdDev is the sample standard deviation; fewer than two values yields 0.
func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// slope fits y = a + b*x over x = 0..n-1 and returns b.
func slope(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, b := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(b) {
		return 0
	}
	return b
}

// safeDiv divides by b, substituting eps (keeping b's sign) when |b| < eps.
func safeDiv(a, b, eps float64) float64 {
	if math.Abs(b) < eps {
		if b < 0 {
			b = -eps
		} else {
			b = eps
		}
	}
	return a / b
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// finite replaces NaN and infinities with 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
