// Package mssql is the SQL Server export backend.
//
// It does not import a driver itself; storage/all registers go-mssqldb
// under the "sqlserver" name.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dataprep/internal/schema"
	"dataprep/internal/storage"
)

func init() {
	storage.Register("mssql", storage.Backend{Open: New, Dialect: Dialect})
}

// Dialect maps inferred types to SQL Server types. SQL Server caps a
// statement at 2100 parameters.
var Dialect = storage.Dialect{
	Types: map[schema.ColumnType]string{
		schema.TypeVarchar:   "NVARCHAR(MAX)",
		schema.TypeInteger:   "BIGINT",
		schema.TypeDecimal:   "FLOAT",
		schema.TypeBoolean:   "BIT",
		schema.TypeTimestamp: "DATETIME2",
		schema.TypeUUID:      "UNIQUEIDENTIFIER",
		schema.TypeJSON:      "NVARCHAR(MAX)",
	},
	HashType:  "CHAR(64)",
	MaxParams: 2000,
	CreateSQL: buildCreateSQL,
}

// Repo implements storage.Repository for SQL Server.
type Repo struct {
	db dbConn
}

// New opens cfg.DSN with the "sqlserver" driver and pings it.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Repo{db: raw}, nil
}

// Close releases database resources held by this repository.
func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// EnsureTable creates t behind an OBJECT_ID guard.
func (r *Repo) EnsureTable(ctx context.Context, t storage.TableSpec) error {
	stmts, err := buildCreateSQL(t)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("create %s: %w", t.Name, err)
		}
	}
	return nil
}

// InsertRows inserts rows. With conflictColumns it uses INSERT ... SELECT
// ... WHERE NOT EXISTS and first drops in-batch duplicates, since SQL Server
// does not collapse them the way ON CONFLICT does.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if table == "" {
		return 0, fmt.Errorf("InsertRows: table is empty")
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("InsertRows: columns is empty")
	}

	var q string
	var args []any
	if len(conflictColumns) == 0 {
		q, args = buildBulkInsertSQL(table, columns, rows)
	} else {
		uniq, err := dedupeRowsByColumns(rows, columns, conflictColumns)
		if err != nil {
			return 0, err
		}
		q, args = buildInsertNotExistsSQL(table, columns, uniq, conflictColumns)
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func buildCreateSQL(t storage.TableSpec) ([]string, error) {
	defs, err := storage.TableDefs(t, mssqlIdent)
	if err != nil {
		return nil, err
	}
	return []string{wrapCreateIfMissing(t.Name, strings.Join(defs, ", "))}, nil
}

// wrapCreateIfMissing guards CREATE TABLE with OBJECT_ID, since SQL Server
// has no CREATE TABLE IF NOT EXISTS.
func wrapCreateIfMissing(tableName string, innerDefs string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		strings.ReplaceAll(tableName, "'", "''"),
		mssqlTableIdent(tableName),
		innerDefs,
	)
}

// buildBulkInsertSQL builds a single INSERT ... VALUES statement for all rows.
func buildBulkInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")
	writeIdentList(&b, "", columns)
	b.WriteString(") VALUES ")
	args := writeValues(&b, columns, rows)
	return b.String(), args
}

// buildInsertNotExistsSQL inserts only rows whose conflictColumns values are
// not yet present in table.
func buildInsertNotExistsSQL(table string, columns []string, rows [][]any, conflictColumns []string) (string, []any) {
	var b strings.Builder

	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")
	writeIdentList(&b, "", columns)
	b.WriteString(") SELECT ")
	writeIdentList(&b, "v.", columns)
	b.WriteString(" FROM (VALUES ")
	args := writeValues(&b, columns, rows)
	b.WriteString(") AS v(")
	writeIdentList(&b, "", columns)
	b.WriteString(") WHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" t WHERE ")

	for i, dc := range conflictColumns {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("t.")
		b.WriteString(mssqlIdent(dc))
		b.WriteString(" = v.")
		b.WriteString(mssqlIdent(dc))
	}
	b.WriteString(")")

	return b.String(), args
}

func writeIdentList(b *strings.Builder, prefix string, columns []string) {
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(prefix)
		b.WriteString(mssqlIdent(c))
	}
}

// writeValues writes "(@p1, @p2), (...)" and returns the matching args.
func writeValues(b *strings.Builder, columns []string, rows [][]any) []any {
	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return args
}

// dedupeRowsByColumns keeps the first row for each key over keyColumns,
// preserving order.
func dedupeRowsByColumns(rows [][]any, columns []string, keyColumns []string) ([][]any, error) {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	idx := make([]int, len(keyColumns))
	for i, k := range keyColumns {
		p, ok := pos[k]
		if !ok {
			return nil, fmt.Errorf("dedupe column %q not present in columns", k)
		}
		idx[i] = p
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([][]any, 0, len(rows))
	var kb strings.Builder
	for _, row := range rows {
		kb.Reset()
		for _, p := range idx {
			fmt.Fprintf(&kb, "%T:%v\x1f", row[p], row[p])
		}
		k := kb.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out, nil
}

// mssqlIdent returns a bracket-quoted identifier, escaping ']' as ']]'.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent quotes each part of a schema-qualified name:
// "dbo.imports" becomes [dbo].[imports].
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

// dbConn is the subset of *sql.DB the repository uses.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error
}

var _ dbConn = (*sql.DB)(nil)
