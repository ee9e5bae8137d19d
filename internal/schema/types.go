// Package schema infers relational table metadata from sample JSON or XML
// documents and renders it as a visual schema.
package schema

// ColumnType is the inferred relational type of a column.
type ColumnType string

const (
	TypeVarchar   ColumnType = "VARCHAR"
	TypeInteger   ColumnType = "INTEGER"
	TypeDecimal   ColumnType = "DECIMAL"
	TypeBoolean   ColumnType = "BOOLEAN"
	TypeTimestamp ColumnType = "TIMESTAMP"
	TypeUUID      ColumnType = "UUID"
	TypeJSON      ColumnType = "JSON"
)

// DefaultTableName is used when no id-like column names the table.
const DefaultTableName = "ImportedTable"

// MaxSampleValues bounds ColumnMetadata.SampleValues.
const MaxSampleValues = 3

// Metadata describes one inferred table.
type Metadata struct {
	TableName string           `json:"tableName"`
	Columns   []ColumnMetadata `json:"columns"`
	RowCount  int              `json:"rowCount"`
}

// Column returns the column named name.
func (m Metadata) Column(name string) (ColumnMetadata, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnMetadata{}, false
}

// PrimaryKeys returns the names of columns flagged as primary keys.
func (m Metadata) PrimaryKeys() []string {
	var out []string
	for _, c := range m.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// ColumnMetadata describes one inferred column.
type ColumnMetadata struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	Nullable     bool       `json:"nullable"`
	PrimaryKey   bool       `json:"primaryKey"`
	Unique       bool       `json:"unique"`
	SampleValues []any      `json:"sampleValues"`
}

// VisualSchema is the diagram-oriented form of inferred metadata.
// Relationships are never inferred and are always empty.
type VisualSchema struct {
	Name          string         `json:"name"`
	Tables        []Table        `json:"tables"`
	Relationships []Relationship `json:"relationships"`
}

// Table is one box on the schema diagram.
type Table struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	X       int            `json:"x"`
	Y       int            `json:"y"`
	Columns []VisualColumn `json:"columns"`
}

// VisualColumn is one column row inside a Table.
type VisualColumn struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	Nullable   bool       `json:"nullable"`
	PrimaryKey bool       `json:"primaryKey"`
	Unique     bool       `json:"unique"`
}

// Relationship links two table columns.
type Relationship struct {
	ID         string `json:"id"`
	FromTable  string `json:"fromTable"`
	FromColumn string `json:"fromColumn"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
	Type       string `json:"type"`
}
