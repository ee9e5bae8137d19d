package cleaning

import (
	"dataprep/internal/cell"
	"dataprep/internal/stats"
	"dataprep/pkg/records"
)

// DefaultOutlierThreshold is the IQR multiplier used when none is given.
const DefaultOutlierThreshold = stats.DefaultIQRThreshold

// OutlierResult is the outcome of RemoveOutliers. OutlierIndices are indices
// into the input rows, ascending.
type OutlierResult struct {
	Rows           []records.Row
	Removed        int
	OutlierIndices []int
}

// RemoveOutliers drops rows whose numeric value in col lies strictly outside
// [Q1 - threshold*IQR, Q3 + threshold*IQR]. Rows where col is missing or not
// numeric are never removed.
func RemoveOutliers(rows []records.Row, col string, threshold float64) OutlierResult {
	var (
		values []float64
		origin []int
	)
	for i, r := range rows {
		if f, ok := cell.ParseNumber(r.Value(col)); ok {
			values = append(values, f)
			origin = append(origin, i)
		}
	}
	if len(values) == 0 {
		return OutlierResult{Rows: records.CloneRows(rows), OutlierIndices: []int{}}
	}

	drop := make(map[int]struct{})
	indices := []int{}
	for _, pos := range stats.IQROutliers(values, threshold) {
		drop[origin[pos]] = struct{}{}
		indices = append(indices, origin[pos])
	}

	kept := make([]records.Row, 0, len(rows)-len(drop))
	for i, r := range rows {
		if _, ok := drop[i]; ok {
			continue
		}
		kept = append(kept, r.Clone())
	}
	return OutlierResult{Rows: kept, Removed: len(indices), OutlierIndices: indices}
}
