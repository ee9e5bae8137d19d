package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dataprep/pkg/records"
)

func TestRemoveOutliers_TightCluster(t *testing.T) {
	t.Parallel()

	res := RemoveOutliers(rowsOf("x", 1.0, 2.0, 3.0, 100.0), "x", 1.5)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, []int{3}, res.OutlierIndices)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, column(res.Rows, "x"))
}

func TestRemoveOutliers_NonNumericRowsAreExempt(t *testing.T) {
	t.Parallel()

	rows := rowsOf("x", "N/A", "1", nil, "2", "", "3", "1000", "abc")
	res := RemoveOutliers(rows, "x", 1.5)

	assert.Equal(t, []int{6}, res.OutlierIndices)
	assert.Equal(t, []any{"N/A", "1", nil, "2", "", "3", "abc"}, column(res.Rows, "x"))
}

func TestRemoveOutliers_NoNumericValues(t *testing.T) {
	t.Parallel()

	rows := rowsOf("x", "a", nil, "b")
	res := RemoveOutliers(rows, "x", 1.5)
	assert.Equal(t, 0, res.Removed)
	assert.Empty(t, res.OutlierIndices)
	assert.Equal(t, column(rows, "x"), column(res.Rows, "x"))
}

func TestRemoveOutliers_ThresholdWidensBounds(t *testing.T) {
	t.Parallel()

	rows := rowsOf("x", 10.0, 11.0, 12.0, 13.0, 20.0)
	assert.Equal(t, 1, RemoveOutliers(rows, "x", 1.5).Removed)
	assert.Equal(t, 0, RemoveOutliers(rows, "x", 5).Removed)
}

func TestRemoveOutliers_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	rows := []records.Row{records.NewRow("x", 1.0), records.NewRow("x", 2.0), records.NewRow("x", 3.0), records.NewRow("x", 100.0)}
	_ = RemoveOutliers(rows, "x", 1.5)
	assert.Len(t, rows, 4)
	assert.Equal(t, 100.0, rows[3].Value("x"))
}
