// Package sqlite is the SQLite export backend, built on the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"dataprep/internal/schema"
	"dataprep/internal/storage"
)

func init() {
	storage.Register("sqlite", storage.Backend{Open: New, Dialect: Dialect})
}

// Dialect maps inferred types to SQLite declared types. Timestamps, UUIDs
// and JSON are stored as TEXT.
var Dialect = storage.Dialect{
	Types: map[schema.ColumnType]string{
		schema.TypeVarchar:   "TEXT",
		schema.TypeInteger:   "INTEGER",
		schema.TypeDecimal:   "REAL",
		schema.TypeBoolean:   "BOOLEAN",
		schema.TypeTimestamp: "TEXT",
		schema.TypeUUID:      "TEXT",
		schema.TypeJSON:      "TEXT",
	},
	HashType:  "TEXT",
	MaxParams: 32766,
	CreateSQL: buildCreateSQL,
}

// Repo implements storage.Repository for SQLite.
type Repo struct {
	db *sql.DB
}

// New opens cfg.DSN (a file path or URI) and pings it.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTable runs CREATE TABLE IF NOT EXISTS for t.
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

// InsertRows performs a multi-row insert. With conflictColumns it uses
// INSERT OR IGNORE, which relies on a UNIQUE constraint over those columns.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("InsertRows: columns is empty")
	}
	q, args := buildInsertSQL(table, columns, rows, conflictColumns)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func buildCreateSQL(t storage.TableSpec) ([]string, error) {
	defs, err := storage.TableDefs(t, sqlIdent)
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		sqlIdent(t.Name), strings.Join(defs, ",\n  "))}, nil
}

func buildInsertSQL(table string, columns []string, rows [][]any, conflictColumns []string) (string, []any) {
	insertPrefix := "INSERT INTO "
	if len(conflictColumns) > 0 {
		insertPrefix = "INSERT OR IGNORE INTO "
	}

	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString(insertPrefix)
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row[:len(columns)]...)
	}
	return b.String(), args
}
