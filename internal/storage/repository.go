// Package storage exports cleaned datasets to a relational database.
//
// Backends register themselves from init functions (see storage/all) and are
// selected by Config.Kind. Each backend also carries a Dialect so DDL can be
// rendered without opening a connection.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects a backend and its connection string.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the backend-agnostic export sink.
//
// Each backend implements idempotent inserts in its own way (Postgres
// ON CONFLICT, SQLite OR IGNORE, SQL Server NOT EXISTS).
type Repository interface {
	// Close releases connections. Call it once.
	Close()

	// EnsureTable creates t if it does not exist yet.
	EnsureTable(ctx context.Context, t TableSpec) error

	// InsertRows inserts rows aligned with columns. When conflictColumns is
	// non-empty, rows that collide on them are skipped instead of failing.
	// It returns the number of rows actually inserted.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, conflictColumns []string) (int64, error)
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// Backend is what a backend package registers.
type Backend struct {
	Open    Factory
	Dialect Dialect
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register makes a backend available under kind.
//
// Panics if kind is empty, b.Open or b.Dialect.CreateSQL is nil, or kind is
// already registered.
func Register(kind string, b Backend) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if b.Open == nil {
		panic("storage: Register called with nil factory")
	}
	if b.Dialect.CreateSQL == nil {
		panic("storage: Register called without CreateSQL")
	}
	if _, exists := backends[kind]; exists {
		panic(fmt.Sprintf("storage: backend already registered for kind=%q", kind))
	}
	backends[kind] = b
}

// Lookup returns the backend registered under kind.
func Lookup(kind string) (Backend, error) {
	if kind == "" {
		return Backend{}, fmt.Errorf("storage: missing kind")
	}
	mu.RLock()
	b, ok := backends[kind]
	mu.RUnlock()
	if !ok {
		return Backend{}, fmt.Errorf("unsupported storage.kind=%s", kind)
	}
	return b, nil
}

// Kinds lists registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a Repository using the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	b, err := Lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, cfg)
}
