package json

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataprep/internal/config"
	"dataprep/pkg/records"
)

func TestReadRows_RootArrayAndTrailingObjects(t *testing.T) {
	t.Parallel()

	in := `[
		{"b": 1, "a": "x"},
		null,
		{"a": "y", "c": true}
	]
	{"a": "z"}`

	ds, err := ReadRows(context.Background(), strings.NewReader(in), nil)
	require.NoError(t, err)

	require.Len(t, ds.Rows, 3)
	assert.Equal(t, []string{"b", "a", "c"}, ds.Headers)
	assert.Equal(t, []string{"b", "a"}, ds.Rows[0].Keys())
	assert.Equal(t, 1.0, ds.Rows[0].Value("b"))
	assert.Equal(t, true, ds.Rows[1].Value("c"))
	assert.Equal(t, "z", ds.Rows[2].Value("a"))
}

func TestReadRows_Envelope(t *testing.T) {
	t.Parallel()

	in := `{"meta": {"page": 1}, "items": [{"id": 1}, {"id": 2}], "next": [1, 2]}`
	ds, err := ReadRows(context.Background(), strings.NewReader(in), nil)
	require.NoError(t, err)

	require.Len(t, ds.Rows, 2)
	assert.Equal(t, []string{"id"}, ds.Headers)
	assert.Equal(t, 2.0, ds.Rows[1].Value("id"))
}

func TestReadRows_SingleObject(t *testing.T) {
	t.Parallel()

	in := `{"name": "Ann", "tags": ["a", "b"], "addr": {"city": "Oslo"}}`
	ds, err := ReadRows(context.Background(), strings.NewReader(in), nil)
	require.NoError(t, err)

	require.Len(t, ds.Rows, 1)
	assert.Equal(t, []any{"a", "b"}, ds.Rows[0].Value("tags"))
	addr, ok := ds.Rows[0].Value("addr").(records.Row)
	require.True(t, ok)
	assert.Equal(t, "Oslo", addr.Value("city"))
}

func TestReadRows_HeaderMapAndFlatten(t *testing.T) {
	t.Parallel()

	in := `[{"Full Name": "Ann", "tags": ["a", "b"]}, {"Full Name": "Bob", "tags": [1]}]`
	opts := config.Options{
		"header_map":           map[string]any{"Full Name": "name"},
		"flatten_arrays":       true,
		"array_join_separator": "|",
	}
	ds, err := ReadRows(context.Background(), strings.NewReader(in), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "tags"}, ds.Headers)
	assert.Equal(t, "a|b", ds.Rows[0].Value("tags"))
	assert.Equal(t, []any{1.0}, ds.Rows[1].Value("tags"), "mixed arrays are kept")
}

func TestReadRows_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "scalar_root", in: `42`},
		{name: "non_object_element", in: `[{"a":1}, 2]`},
		{name: "truncated", in: `[{"a":1}`},
		{name: "trailing_scalar", in: `[{"a":1}] 7`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadRows(context.Background(), strings.NewReader(tc.in), nil)
			assert.Error(t, err)
		})
	}
}

func TestReadRows_EmptyInput(t *testing.T) {
	t.Parallel()

	ds, err := ReadRows(context.Background(), strings.NewReader("  "), nil)
	require.NoError(t, err)
	assert.Empty(t, ds.Rows)
}
