package probe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataprep/internal/parser"
	"dataprep/internal/schema"
	"dataprep/pkg/records"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestProbe_CSVTruncatesAtLastNewline(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("order_id,status\n")
	for i := 0; i < 200; i++ {
		b.WriteString("1000")
		b.WriteString(",open\n")
	}
	path := writeFile(t, "orders.csv", b.String())

	res, err := Probe(context.Background(), Options{Path: path, MaxBytes: 100})
	require.NoError(t, err)

	assert.Equal(t, parser.FormatCSV, res.Format)
	assert.True(t, res.Truncated)
	// 16 header bytes + 10 bytes per row fit 8 complete rows in 100 bytes.
	assert.Len(t, res.Dataset.Rows, 8)
	assert.Equal(t, "Orders", res.Metadata.TableName)
	for _, r := range res.Dataset.Rows {
		assert.Equal(t, "open", r.Value("status"))
	}
}

func TestProbe_JSONReadWholeAndCappedByRows(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.json", `{"items":[{"sku":"a","qty":1},{"sku":"b","qty":2},{"sku":"c","qty":2}]}`)

	res, err := Probe(context.Background(), Options{Path: path, MaxBytes: 10, MaxRows: 2, Name: "Stock"})
	require.NoError(t, err)

	assert.Equal(t, parser.FormatJSON, res.Format)
	assert.True(t, res.Truncated)
	require.Len(t, res.Dataset.Rows, 2)
	assert.Equal(t, "Stock", res.Metadata.TableName)
	col, ok := res.Metadata.Column("qty")
	require.True(t, ok)
	assert.Equal(t, schema.TypeInteger, col.Type)
}

func TestProbe_InferTypesTypesDelimitedText(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "prices.csv", "id,price,active\n1,2.5,true\n2,3,false\n")

	res, err := Probe(context.Background(), Options{Path: path})
	require.NoError(t, err)
	col, _ := res.Metadata.Column("price")
	assert.Equal(t, schema.TypeVarchar, col.Type)

	res, err = Probe(context.Background(), Options{Path: path, InferTypes: true})
	require.NoError(t, err)
	for name, want := range map[string]schema.ColumnType{
		"id":     schema.TypeInteger,
		"price":  schema.TypeDecimal,
		"active": schema.TypeBoolean,
	} {
		col, ok := res.Metadata.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, want, col.Type, name)
	}
	assert.Equal(t, []string{"id"}, res.Metadata.PrimaryKeys())
}

func TestProbe_Errors(t *testing.T) {
	t.Parallel()

	_, err := Probe(context.Background(), Options{})
	assert.Error(t, err)

	_, err = Probe(context.Background(), Options{Path: filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, err)

	path := writeFile(t, "empty.csv", "a,b\n")
	_, err = Probe(context.Background(), Options{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data rows")
}

func TestComputeUniqueness_CountsOnlyMeaningfulValues(t *testing.T) {
	t.Parallel()

	rows := []records.Row{
		records.NewRow("id", float64(1), "color", "red", "note", nil),
		records.NewRow("id", float64(2), "color", "red", "note", "  "),
		records.NewRow("id", float64(3), "color", "blue"),
		records.NewRow("id", 3.5, "color", "red", "note", "x"),
	}
	u := ComputeUniqueness(rows, []string{"id", "color", "note"})

	assert.Equal(t, 4, u.TotalRows)
	assert.Equal(t, 4, u.PerColumnTotal["id"])
	assert.Equal(t, 4, u.PerColumnDistinct["id"])
	assert.Equal(t, 2, u.PerColumnDistinct["color"])
	assert.Equal(t, 1, u.PerColumnTotal["note"])

	r, ok := u.Ratio("color")
	require.True(t, ok)
	assert.InDelta(t, 0.5, r, 1e-9)
	_, ok = u.Ratio("absent")
	assert.False(t, ok)
}

func TestUniqueness_Categorical(t *testing.T) {
	t.Parallel()

	u := Uniqueness{
		TotalRows: 100,
		PerColumnTotal: map[string]int{
			"id": 100, "shape": 100, "color": 100, "volume": 100, "row_hash": 100,
		},
		PerColumnDistinct: map[string]int{
			"id": 100, "shape": 3, "color": 3, "volume": 40, "row_hash": 1,
		},
		ColumnOrder: []string{"id", "shape", "color", "volume", "row_hash"},
	}

	assert.Equal(t, []string{"color", "shape", "volume"}, u.Categorical(5))
	assert.Equal(t, []string{"color"}, u.Categorical(1))
	assert.Empty(t, Uniqueness{}.Categorical(3))
}

func TestUniqueness_Report(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "uniqueness: no rows sampled", Uniqueness{}.Report())

	u := ComputeUniqueness([]records.Row{
		records.NewRow("a", "x", "b", "1"),
		records.NewRow("a", "x", "b", "2"),
	}, []string{"a", "b", "c"})
	rep := u.Report()

	lines := strings.Split(rep, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "uniqueness report:\tsampled_rows=2", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "a "), lines[2])
	assert.Contains(t, lines[2], "50.0%")
	assert.Contains(t, lines[3], "100.0%")
}
