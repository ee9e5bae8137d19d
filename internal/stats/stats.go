// Package stats holds the small set of descriptive statistics used by the
// cleaning pipeline: mean, median, linear-interpolated percentiles and the
// IQR outlier rule.
package stats

import (
	"sort"
)

// DefaultIQRThreshold is the Tukey fence multiplier.
const DefaultIQRThreshold = 1.5

// Mean computes the average of a slice. Empty input yields 0.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// Median returns the median value of the slice (allocates a copy).
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	cp := sortedCopy(x)
	mid := n >> 1
	if n&1 == 0 {
		return (cp[mid-1] + cp[mid]) * 0.5
	}
	return cp[mid]
}

// Percentile returns the p-th percentile (0 <= p <= 100) using linear
// interpolation between closest ranks.
func Percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return percentileSorted(sortedCopy(x), p)
}

func percentileSorted(cp []float64, p float64) float64 {
	n := len(cp)
	if p <= 0 {
		return cp[0]
	}
	if p >= 100 {
		return cp[n-1]
	}
	rank := p / 100 * float64(n-1)
	lower := int(rank)
	upper := lower + 1
	weight := rank - float64(lower)
	if upper >= n {
		return cp[lower]
	}
	return cp[lower]*(1-weight) + cp[upper]*weight
}

// Quartiles returns Q1 and Q3.
func Quartiles(x []float64) (q1, q3 float64) {
	if len(x) == 0 {
		return 0, 0
	}
	cp := sortedCopy(x)
	return percentileSorted(cp, 25), percentileSorted(cp, 75)
}

// IQRBounds returns the closed interval [Q1-k*IQR, Q3+k*IQR].
func IQRBounds(x []float64, threshold float64) (lo, hi float64) {
	q1, q3 := Quartiles(x)
	iqr := q3 - q1
	return q1 - threshold*iqr, q3 + threshold*iqr
}

// IQROutliers returns the positions in x whose value lies strictly outside
// the IQR bounds for threshold. Positions are ascending.
func IQROutliers(x []float64, threshold float64) []int {
	if len(x) == 0 {
		return nil
	}
	lo, hi := IQRBounds(x, threshold)
	var out []int
	for i, v := range x {
		if v < lo || v > hi {
			out = append(out, i)
		}
	}
	return out
}

func sortedCopy(x []float64) []float64 {
	cp := make([]float64, len(x))
	copy(cp, x)
	sort.Float64s(cp)
	return cp
}
