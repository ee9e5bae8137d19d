package csv

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"dataprep/internal/config"
)

func TestReadRows_HeaderAndCells(t *testing.T) {
	t.Parallel()

	in := "\uFEFF name , age,city\nAnn, 30 ,Oslo\nBob,,\n"
	ds, err := ReadRows(context.Background(), strings.NewReader(in), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "city"}, ds.Headers)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, " 30 ", ds.Rows[0].Value("age"), "cells are not trimmed by default")
	assert.Equal(t, "", ds.Rows[1].Value("age"))
	assert.Equal(t, []string{"name", "age", "city"}, ds.Rows[1].Keys())
}

func TestReadRows_Options(t *testing.T) {
	t.Parallel()

	in := "First Name;Amount;Amount\n Ann ;1;2\n"
	opts := config.Options{
		"delimiter":         ";",
		"trim_space":        true,
		"normalize_headers": true,
		"header_map":        map[string]any{"Amount": "amt"},
	}
	ds, err := ReadRows(context.Background(), strings.NewReader(in), opts, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"first_name", "amt", "amt_2"}, ds.Headers)
	assert.Equal(t, "Ann", ds.Rows[0].Value("first_name"))
	assert.Equal(t, "2", ds.Rows[0].Value("amt_2"))
}

func TestReadRows_NoHeader(t *testing.T) {
	t.Parallel()

	in := "a\tb\nc\n"
	ds, err := ReadRows(context.Background(), strings.NewReader(in), config.Options{"delimiter": "tab", "has_header": false}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"column_1", "column_2"}, ds.Headers)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "a", ds.Rows[0].Value("column_1"))
	v, ok := ds.Rows[1].Get("column_2")
	assert.True(t, ok)
	assert.Nil(t, v, "short rows are padded with nil")
}

func TestReadRows_Empty(t *testing.T) {
	t.Parallel()

	ds, err := ReadRows(context.Background(), strings.NewReader(""), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ds.Headers)
	assert.Empty(t, ds.Rows)
}

func TestReadRows_MalformedLine(t *testing.T) {
	t.Parallel()

	in := "a,b\n1,2\n\"bad,3\n"

	_, err := ReadRows(context.Background(), strings.NewReader(in), nil, nil)
	require.Error(t, err, "nil onErr aborts on the first bad record")

	var lines []int
	ds, err := ReadRows(context.Background(), strings.NewReader(in), nil, func(line int, err error) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 1)
	assert.NotEmpty(t, lines)
}

func TestReadRows_Encoding(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := charmap.Windows1250.NewEncoder().Writer(&buf)
	_, err := w.Write([]byte("mesto\nPříbram\n"))
	require.NoError(t, err)

	ds, err := ReadRows(context.Background(), &buf, config.Options{"encoding": "windows-1250"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Příbram", ds.Rows[0].Value("mesto"))

	_, err = ReadRows(context.Background(), strings.NewReader("a\n"), config.Options{"encoding": "klingon"}, nil)
	assert.Error(t, err)
}

func TestReadRows_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadRows(ctx, strings.NewReader("a\n1\n"), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadRows_RepeatedHeadersKeepEveryColumn(t *testing.T) {
	t.Parallel()

	ds, err := ReadRows(context.Background(), strings.NewReader("a,a,a_2,,column_4\n1,2,3,4,5\n"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a_3", "a_2", "column_4_2", "column_4"}, ds.Headers)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, 5, ds.Rows[0].Len())
	assert.Equal(t, "2", ds.Rows[0].Value("a_3"))
	assert.Equal(t, "3", ds.Rows[0].Value("a_2"))
	assert.Equal(t, "4", ds.Rows[0].Value("column_4_2"))
}
