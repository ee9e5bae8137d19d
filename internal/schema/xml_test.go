package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogXML = `<?xml version="1.0"?>
<catalog>
  <book>
    <book_id>1</book_id>
    <title>Go</title>
    <published>2015-10-26</published>
  </book>
  <book>
    <book_id>2</book_id>
    <title>Go</title>
    <published></published>
    <ignored>x</ignored>
  </book>
  <book>
    <book_id>3</book_id>
    <title>Rust</title>
  </book>
</catalog>`

func TestXMLToMetadata(t *testing.T) {
	t.Parallel()

	meta, err := XMLToMetadata([]byte(catalogXML))
	require.NoError(t, err)

	assert.Equal(t, "Books", meta.TableName)
	assert.Equal(t, 3, meta.RowCount)
	require.Len(t, meta.Columns, 3)

	id := meta.Columns[0]
	assert.Equal(t, "book_id", id.Name)
	assert.Equal(t, TypeVarchar, id.Type)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.Unique)

	title := meta.Columns[1]
	assert.False(t, title.Unique)
	assert.False(t, title.Nullable)

	pub := meta.Columns[2]
	assert.Equal(t, TypeTimestamp, pub.Type)
	assert.True(t, pub.Nullable)
	assert.Equal(t, []any{"2015-10-26", ""}, pub.SampleValues)
}

func TestXMLToMetadata_RootNameFallback(t *testing.T) {
	t.Parallel()

	meta, err := XMLToMetadata([]byte(`<inventory_items><item><sku>A</sku></item></inventory_items>`))
	require.NoError(t, err)
	assert.Equal(t, "InventoryItems", meta.TableName)
}

func TestXMLToMetadata_Errors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		``,
		`just text`,
		`<root></root>`,
		`<root><row><a>1</a></row>`,
	} {
		_, err := XMLToMetadata([]byte(in))
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidInput), "%q: %v", in, err)
	}
}

func TestXMLToSchema(t *testing.T) {
	t.Parallel()

	vs, err := XMLToSchema([]byte(catalogXML))
	require.NoError(t, err)
	require.Len(t, vs.Tables, 1)
	assert.Equal(t, "Books", vs.Tables[0].Name)
	assert.Len(t, vs.Tables[0].Columns, 3)
	assert.Empty(t, vs.Relationships)
}

func TestXMLRows(t *testing.T) {
	t.Parallel()

	ds, err := XMLRows([]byte(catalogXML))
	require.NoError(t, err)

	assert.Equal(t, []string{"book_id", "title", "published", "ignored"}, ds.Headers)
	require.Len(t, ds.Rows, 3)
	assert.Equal(t, "2015-10-26", ds.Rows[0].Value("published"))
	assert.Nil(t, ds.Rows[0].Value("ignored"))
	assert.Equal(t, "", ds.Rows[1].Value("published"))
	assert.Equal(t, "x", ds.Rows[1].Value("ignored"))
	assert.Equal(t, "Rust", ds.Rows[2].Value("title"))
	assert.Equal(t, 4, ds.Rows[2].Len())

	ds, err = XMLRows([]byte(`<root></root>`))
	require.NoError(t, err)
	assert.Empty(t, ds.Headers)
	assert.Empty(t, ds.Rows)

	_, err = XMLRows([]byte(`<root><row>`))
	assert.True(t, errors.Is(err, ErrInvalidInput), "%v", err)
}
