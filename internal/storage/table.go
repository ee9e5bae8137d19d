package storage

import (
	"fmt"
	"strconv"
	"strings"

	"dataprep/internal/schema"
)

// RowHashColumn holds the row fingerprint used for idempotent inserts. When
// the data already has a column by that name, fallbackRowHashColumn is used.
const (
	RowHashColumn         = "row_hash"
	fallbackRowHashColumn = "dataprep_row_hash"
)

// TableSpec describes a table to create.
type TableSpec struct {
	Name        string
	PrimaryKey  []string
	Columns     []ColumnSpec
	Constraints []ConstraintSpec
}

// ColumnSpec is one column. Type is dialect SQL.
type ColumnSpec struct {
	Name     string
	Type     string
	Nullable *bool
}

// ConstraintSpec is a table constraint. Only "unique" is supported.
type ConstraintSpec struct {
	Kind    string
	Columns []string
}

// Dialect is the backend-specific part of DDL and batching.
type Dialect struct {
	// Types maps inferred column types to SQL types.
	Types map[schema.ColumnType]string

	// HashType is the SQL type of the row hash column.
	HashType string

	// MaxParams bounds placeholders per statement.
	MaxParams int

	// CreateSQL renders the statements that create t if missing.
	CreateSQL func(t TableSpec) ([]string, error)
}

// SQLType returns the SQL type for t, falling back to the VARCHAR mapping.
func (d Dialect) SQLType(t schema.ColumnType) string {
	if s, ok := d.Types[t]; ok && s != "" {
		return s
	}
	return d.Types[schema.TypeVarchar]
}

// BatchRows returns how many rows of width columns fit in one statement.
func (d Dialect) BatchRows(width int) int {
	if width < 1 {
		width = 1
	}
	maxParams := d.MaxParams
	if maxParams <= 0 {
		maxParams = 1000
	}
	n := maxParams / width
	if n < 1 {
		n = 1
	}
	return min(n, 1000)
}

// TableSpecFromMetadata converts inferred metadata into a TableSpec.
// Column names are normalized identifiers; table overrides meta.TableName
// when set. Non-nullable primary key columns from the metadata become the
// table's primary key.
func TableSpecFromMetadata(meta schema.Metadata, table string, d Dialect) (TableSpec, error) {
	name := TableName(table, meta.TableName)
	if name == "" {
		return TableSpec{}, fmt.Errorf("storage: table name is empty")
	}
	if len(meta.Columns) == 0 {
		return TableSpec{}, fmt.Errorf("storage: table %s has no columns", name)
	}

	names := ColumnNames(meta)
	t := TableSpec{Name: name, Columns: make([]ColumnSpec, 0, len(meta.Columns))}
	for i, c := range meta.Columns {
		// Only key columns are NOT NULL; later runs may bring gaps elsewhere.
		pk := c.PrimaryKey && !c.Nullable
		nullable := !pk
		t.Columns = append(t.Columns, ColumnSpec{
			Name:     names[i],
			Type:     d.SQLType(c.Type),
			Nullable: &nullable,
		})
		if pk {
			t.PrimaryKey = append(t.PrimaryKey, names[i])
		}
	}
	return t, nil
}

// DDL renders CREATE TABLE statements for meta using the dialect of kind.
func DDL(kind string, meta schema.Metadata, table string) ([]string, error) {
	b, err := Lookup(kind)
	if err != nil {
		return nil, err
	}
	t, err := TableSpecFromMetadata(meta, table, b.Dialect)
	if err != nil {
		return nil, err
	}
	return b.Dialect.CreateSQL(t)
}

// TableName normalizes an optional configured name, falling back to
// inferred. A schema-qualified "schema.table" keeps its dot.
func TableName(configured, inferred string) string {
	raw := strings.TrimSpace(configured)
	if raw == "" {
		raw = inferred
	}
	parts := strings.Split(raw, ".")
	if len(parts) > 2 {
		parts = []string{strings.Join(parts, "_")}
	}
	for i, p := range parts {
		parts[i] = schema.NormalizeIdentifier(p)
		if parts[i] == "" {
			return ""
		}
	}
	return strings.Join(parts, ".")
}

// ColumnNames returns unique normalized identifiers for meta.Columns.
// Names that normalize to nothing become column_N; collisions get a
// numeric suffix.
func ColumnNames(meta schema.Metadata) []string {
	out := make([]string, len(meta.Columns))
	seen := make(map[string]bool, len(meta.Columns))
	for i, c := range meta.Columns {
		n := schema.NormalizeIdentifier(c.Name)
		if n == "" {
			n = "column_" + strconv.Itoa(i+1)
		}
		if n[0] >= '0' && n[0] <= '9' {
			n = schema.TruncateIdentifier("c_" + n)
		}
		base := n
		for k := 2; seen[n]; k++ {
			n = withSuffix(base, "_"+strconv.Itoa(k))
		}
		seen[n] = true
		out[i] = n
	}
	return out
}

// withSuffix appends suffix to base, cutting base so the result stays
// within schema.MaxIdentifierLen.
func withSuffix(base, suffix string) string {
	keep := schema.MaxIdentifierLen - len(suffix)
	if len(base) > keep {
		base = schema.TruncateIdentifier(base[:keep])
	}
	return base + suffix
}

// uniqueConstraint renders "UNIQUE (a, b)" for a unique ConstraintSpec.
func uniqueConstraint(table string, c ConstraintSpec, ident func(string) string) (string, error) {
	if !strings.EqualFold(strings.TrimSpace(c.Kind), "unique") {
		return "", fmt.Errorf("table %s: unsupported constraint kind %q", table, c.Kind)
	}
	if len(c.Columns) == 0 {
		return "", fmt.Errorf("table %s: unique constraint requires columns", table)
	}
	cols := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		cols[i] = ident(strings.TrimSpace(col))
	}
	return "UNIQUE (" + strings.Join(cols, ", ") + ")", nil
}

// TableDefs renders the column, primary key and constraint definitions of t
// with the given identifier quoting. Backends wrap the result in their own
// CREATE TABLE form.
func TableDefs(t TableSpec, ident func(string) string) ([]string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, fmt.Errorf("table name is empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("table %s: no columns", t.Name)
	}
	defs := make([]string, 0, len(t.Columns)+len(t.Constraints)+1)
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		typ := strings.TrimSpace(c.Type)
		if name == "" || typ == "" {
			return nil, fmt.Errorf("table %s: column name/type must be set", t.Name)
		}
		def := ident(name) + " " + typ
		if c.Nullable != nil && !*c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(t.PrimaryKey) > 0 {
		cols := make([]string, len(t.PrimaryKey))
		for i, c := range t.PrimaryKey {
			cols[i] = ident(c)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(cols, ", ")+")")
	}
	for _, c := range t.Constraints {
		def, err := uniqueConstraint(t.Name, c, ident)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
