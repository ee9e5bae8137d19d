package xlsx

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dataprep/internal/config"
	"dataprep/pkg/records"
)

func workbook(t *testing.T, sheet string, cells map[string]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestReadRows(t *testing.T) {
	t.Parallel()

	buf := workbook(t, "Prices", map[string]any{
		"A1": "Ticker", "B1": "Close",
		"A2": "BBOB", "B2": "1.25",
		"A3": "TASC",
	})
	ds, err := ReadRows(context.Background(), buf, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ticker", "Close"}, ds.Headers)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "1.25", ds.Rows[0].Value("Close"))
	assert.Nil(t, ds.Rows[1].Value("Close"))
}

func TestReadRows_SheetOption(t *testing.T) {
	t.Parallel()

	buf := workbook(t, "Prices", map[string]any{"A1": "x"})
	_, err := ReadRows(context.Background(), bytes.NewReader(buf.Bytes()), config.Options{"sheet": "Missing"})
	assert.Error(t, err)

	ds, err := ReadRows(context.Background(), bytes.NewReader(buf.Bytes()), config.Options{"sheet": "Prices", "has_header": false})
	require.NoError(t, err)
	assert.Equal(t, []string{"column_1"}, ds.Headers)
	assert.Equal(t, "x", ds.Rows[0].Value("column_1"))
}

func TestWriteThenRead(t *testing.T) {
	t.Parallel()

	ds := records.Dataset{
		Headers: []string{"name", "qty", "ok"},
		Rows: []records.Row{
			records.NewRow("name", "Ann", "qty", 2.5, "ok", true),
			records.NewRow("name", "Bob", "qty", nil, "ok", false),
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ds, ""))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, DefaultSheet, f.GetSheetName(0))

	got, err := ReadRows(context.Background(), &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, ds.Headers, got.Headers)
	assert.Equal(t, "2.5", got.Rows[0].Value("qty"))
	assert.Equal(t, "TRUE", got.Rows[0].Value("ok"))
}

func TestReadRows_NotAWorkbook(t *testing.T) {
	t.Parallel()

	_, err := ReadRows(context.Background(), bytes.NewReader([]byte("a,b\n")), nil)
	assert.Error(t, err)
}

func TestReadRows_RepeatedHeadersKeepEveryColumn(t *testing.T) {
	t.Parallel()

	buf := workbook(t, "Data", map[string]any{
		"A1": "a", "B1": "a", "C1": "a_2",
		"A2": "1", "B2": "2", "C2": "3",
	})
	ds, err := ReadRows(context.Background(), buf, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a_3", "a_2"}, ds.Headers)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "2", ds.Rows[0].Value("a_3"))
	assert.Equal(t, "3", ds.Rows[0].Value("a_2"))
}
