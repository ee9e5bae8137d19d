// Package postgres is the Postgres export backend, built on pgxpool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"dataprep/internal/schema"
	"dataprep/internal/storage"
)

func init() {
	storage.Register("postgres", storage.Backend{Open: New, Dialect: Dialect})
}

// Dialect maps inferred types to Postgres types.
var Dialect = storage.Dialect{
	Types: map[schema.ColumnType]string{
		schema.TypeVarchar:   "text",
		schema.TypeInteger:   "bigint",
		schema.TypeDecimal:   "double precision",
		schema.TypeBoolean:   "boolean",
		schema.TypeTimestamp: "timestamptz",
		schema.TypeUUID:      "uuid",
		schema.TypeJSON:      "jsonb",
	},
	HashType:  "char(64)",
	MaxParams: 65535,
	CreateSQL: buildCreateSQL,
}

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New opens a connection pool for cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// EnsureTable creates the schema (when qualified) and the table. It is
// idempotent.
func (r *Repo) EnsureTable(ctx context.Context, t storage.TableSpec) error {
	stmts, err := buildCreateSQL(t)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("create %s: %w", t.Name, err)
		}
	}
	return nil
}

// InsertRows performs one multi-row INSERT. With conflictColumns the insert
// becomes ON CONFLICT (...) DO NOTHING.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("InsertRows: columns is empty")
	}
	sql, args := buildInsertSQL(table, columns, rows, conflictColumns)
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// buildInsertSQL constructs a single INSERT statement and its args.
//
// rows must have the same length as columns for every row.
func buildInsertSQL(table string, columns []string, rows [][]any, conflictColumns []string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgTableIdent(table))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

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
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	if len(conflictColumns) > 0 {
		b.WriteString(" ON CONFLICT (")
		for i, c := range conflictColumns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pgIdent(c))
		}
		b.WriteString(") DO NOTHING")
	}

	b.WriteString(";")
	return b.String(), args
}

// buildCreateSQL returns CREATE SCHEMA (for qualified names) and CREATE TABLE.
func buildCreateSQL(t storage.TableSpec) ([]string, error) {
	defs, err := storage.TableDefs(t, pgIdent)
	if err != nil {
		return nil, err
	}
	var out []string
	if schemaName, _ := splitQualifiedName(t.Name); schemaName != "" {
		out = append(out, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, pgIdent(schemaName)))
	}
	out = append(out, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s);`,
		pgTableIdent(t.Name), strings.Join(defs, ", ")))
	return out, nil
}

// splitQualifiedName splits "schema.table". Anything other than exactly
// one dot is treated as unqualified.
func splitQualifiedName(name string) (schemaName string, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// pgIdent double-quotes an identifier.
func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// pgTableIdent quotes a possibly schema-qualified table name.
func pgTableIdent(name string) string {
	if s, t := splitQualifiedName(name); s != "" {
		return pgIdent(s) + "." + pgIdent(t)
	}
	return pgIdent(strings.TrimSpace(name))
}
