package html

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataprep/internal/config"
)

const page = `<html><body>
<table id="first"><tr><td>ignored</td></tr></table>
<table class="data">
  <thead><tr><th> Name </th><th>Qty</th><th>Qty</th></tr></thead>
  <tbody>
    <tr><td>Ann</td><td> 3 </td><td>4</td></tr>
    <tr><td>Bob</td><td><table><tr><td>nested</td></tr></table></td></tr>
  </tbody>
</table>
<ul>
  <li class="item"><a href="/p/1">Widget</a><span class="price">Price: 10.50 EUR</span></li>
  <li class="item"><a href="/p/2">Gadget</a></li>
</ul>
</body></html>`

func TestReadRows_Table(t *testing.T) {
	t.Parallel()

	ds, err := ReadRows(context.Background(), strings.NewReader(page), config.Options{"selector": "table.data"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Qty", "Qty_2"}, ds.Headers)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "3", ds.Rows[0].Value("Qty"))
	assert.Equal(t, "Bob", ds.Rows[1].Value("Name"))
	assert.Nil(t, ds.Rows[1].Value("Qty_2"))
}

func TestReadRows_TableIndexOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := ReadRows(context.Background(), strings.NewReader(page), config.Options{"selector": "table.data", "table_index": 3})
	assert.Error(t, err)
}

func TestReadRows_NoHeader(t *testing.T) {
	t.Parallel()

	in := `<table><tr><td>a</td><td>b</td></tr><tr><td>c</td></tr></table>`
	ds, err := ReadRows(context.Background(), strings.NewReader(in), config.Options{"has_header": false})
	require.NoError(t, err)

	assert.Equal(t, []string{"column_1", "column_2"}, ds.Headers)
	assert.Len(t, ds.Rows, 2)
}

func TestReadRows_RecordMode(t *testing.T) {
	t.Parallel()

	opts := config.Options{
		"record_selector": "li.item",
		"mappings": []any{
			map[string]any{"column": "name", "selector": "a"},
			map[string]any{"column": "url", "selector": "a", "extract": "attr", "attr": "href"},
			map[string]any{"column": "price", "selector": ".price", "match": `([0-9.]+)`},
		},
	}
	ds, err := ReadRows(context.Background(), strings.NewReader(page), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "url", "price"}, ds.Headers)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "/p/1", ds.Rows[0].Value("url"))
	assert.Equal(t, "10.50", ds.Rows[0].Value("price"))
	assert.Nil(t, ds.Rows[1].Value("price"))
}

func TestReadRows_RecordModeBadMappings(t *testing.T) {
	t.Parallel()

	tests := []config.Options{
		{"record_selector": "li"},
		{"record_selector": "li", "mappings": []any{"x"}},
		{"record_selector": "li", "mappings": []any{map[string]any{"selector": "a"}}},
		{"record_selector": "li", "mappings": []any{map[string]any{"column": "a", "match": "("}}},
	}
	for _, opts := range tests {
		_, err := ReadRows(context.Background(), strings.NewReader(page), opts)
		assert.Error(t, err, "%v", opts)
	}
}

func TestApplyRegexFilter(t *testing.T) {
	t.Parallel()

	re, err := compileOptionalRegex(`id=(\d+)`, "id")
	require.NoError(t, err)
	assert.Equal(t, "42", applyRegexFilter("x id=42", re))
	assert.Equal(t, "", applyRegexFilter("none", re))
	assert.Equal(t, "keep", applyRegexFilter("keep", nil))
}

func TestReadRows_RepeatedHeadersKeepEveryColumn(t *testing.T) {
	t.Parallel()

	page := `<table><tr><th>a</th><th>a</th><th>a_2</th></tr><tr><td>1</td><td>2</td><td>3</td></tr></table>`
	ds, err := ReadRows(context.Background(), strings.NewReader(page), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a_3", "a_2"}, ds.Headers)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "2", ds.Rows[0].Value("a_3"))
	assert.Equal(t, "3", ds.Rows[0].Value("a_2"))
}
