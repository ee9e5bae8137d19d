package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataToSchema(t *testing.T) {
	t.Parallel()

	meta := Metadata{
		TableName: "Users",
		RowCount:  2,
		Columns: []ColumnMetadata{
			{Name: "user_id", Type: TypeInteger, PrimaryKey: true, Unique: true},
			{Name: "name", Type: TypeVarchar, Nullable: true},
		},
	}
	vs := MetadataToSchema(meta)

	assert.Equal(t, "Users", vs.Name)
	require.Len(t, vs.Tables, 1)
	tbl := vs.Tables[0]
	assert.Equal(t, "Users", tbl.Name)
	assert.Equal(t, 100, tbl.X)
	assert.Equal(t, 100, tbl.Y)
	_, err := uuid.Parse(tbl.ID)
	assert.NoError(t, err)

	require.Len(t, tbl.Columns, 2)
	assert.Equal(t, "user_id", tbl.Columns[0].Name)
	assert.True(t, tbl.Columns[0].PrimaryKey)
	assert.True(t, tbl.Columns[1].Nullable)
	assert.NotEqual(t, tbl.Columns[0].ID, tbl.Columns[1].ID)

	b, err := json.Marshal(vs)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"relationships":[]`)
}

func TestAutoConvertToSchema(t *testing.T) {
	t.Parallel()

	jsonDoc := []byte(`[{"user_id":1,"name":"A"},{"user_id":2,"name":"B"}]`)

	cases := []struct {
		name     string
		content  []byte
		filename string
		table    string
		errIs    error
	}{
		{"json by extension", jsonDoc, "users.JSON", "Users", nil},
		{"js by extension", jsonDoc, "seed.js", "Users", nil},
		{"xml by extension", []byte(catalogXML), "books.xml", "Books", nil},
		{"sniff json", jsonDoc, "upload.txt", "Users", nil},
		{"sniff xml", []byte(catalogXML), "", "Books", nil},
		{"neither", []byte("a,b\n1,2\n"), "data.csv", "", ErrUnsupportedFormat},
		{"bad json with json extension", []byte("{"), "x.json", "", ErrInvalidInput},
		{"parsed json but not rows", []byte(`{"a":1}`), "x.dat", "", ErrInvalidInput},
		{"bad xml with xml extension", []byte("<a>"), "x.xml", "", ErrInvalidInput},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			vs, err := AutoConvertToSchema(tc.content, tc.filename)
			if tc.errIs != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.errIs), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.table, vs.Tables[0].Name)
		})
	}
}

func TestUnsupportedFormatErrorAs(t *testing.T) {
	t.Parallel()

	_, err := AutoConvertToMetadata([]byte("plain"), "notes")
	var ufe *UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, "notes", ufe.Filename)
	assert.Error(t, ufe.JSONErr)
	assert.Error(t, ufe.XMLErr)
}
