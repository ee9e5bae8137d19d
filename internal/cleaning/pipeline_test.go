package cleaning

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataprep/pkg/records"
)

func TestRunCleanPipeline_AllStages(t *testing.T) {
	t.Parallel()

	data := records.Dataset{
		Headers: []string{"name", "score"},
		Rows: []records.Row{
			records.NewRow("name", " ann ", "score", "1"),
			records.NewRow("name", " ann ", "score", "1"),
			records.NewRow("name", "bob", "score", ""),
			records.NewRow("name", "cy", "score", "2"),
			records.NewRow("name", "di", "score", "3"),
			records.NewRow("name", "ed", "score", "400"),
		},
	}
	threshold := 1.5
	res, err := RunCleanPipeline(data, Options{
		Fill:             FillPlan{{Column: "score", Strategy: FillMedian}, {Column: "ghost", Strategy: FillMode}},
		OutlierColumns:   []string{"ghost", "score"},
		OutlierThreshold: &threshold,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Removed 1 duplicates",
		"Trimmed whitespace",
		"Filled missing in score with median",
		"Removed 1 outliers from score",
	}, res.Summary)

	assert.Equal(t, []string{"name", "score"}, res.Data.Headers)
	assert.Equal(t, []any{"ann", "bob", "cy", "di"}, column(res.Data.Rows, "name"))
	assert.Equal(t, []any{"1", 2.5, "2", "3"}, column(res.Data.Rows, "score"))

	assert.Equal(t, Stats{RowsIn: 6, RowsOut: 4, DuplicatesRemoved: 1, CellsFilled: 1, OutliersRemoved: 1}, res.Stats)

	// input untouched
	assert.Len(t, data.Rows, 6)
	assert.Equal(t, " ann ", data.Rows[0].Value("name"))
}

func TestRunCleanPipeline_MinimalSummary(t *testing.T) {
	t.Parallel()

	data := records.Dataset{Headers: []string{"x"}, Rows: rowsOf("x", "a", "b")}
	res, err := RunCleanPipeline(data, Options{OutlierColumns: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Trimmed whitespace"}, res.Summary)
	assert.Len(t, res.Data.Rows, 2)
}

func TestRunCleanPipeline_UnknownStrategyFails(t *testing.T) {
	t.Parallel()

	data := records.Dataset{Headers: []string{"x"}, Rows: rowsOf("x", nil)}
	_, err := RunCleanPipeline(data, Options{Fill: FillPlan{{Column: "x", Strategy: "zero"}}})
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestRunCleanPipeline_JSONShape(t *testing.T) {
	t.Parallel()

	var opts Options
	require.NoError(t, json.Unmarshal([]byte(`{"fill":{"v":"mean"},"outlierColumns":["v"]}`), &opts))

	data := records.Dataset{Headers: []string{"v"}, Rows: rowsOf("v", nil, 2.0, 4.0, nil)}
	res, err := RunCleanPipeline(data, opts)
	require.NoError(t, err)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"data":{"headers":["v"],"rows":[{"v":3},{"v":2},{"v":4}]},"summary":["Removed 1 duplicates","Trimmed whitespace","Filled missing in v with mean"]}`,
		string(out))
}
