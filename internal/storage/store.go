// Package storage provides the relational persistence layer: a SQLite
// database of entities, relations and their companion tables, plus the
// generic paged record fetcher every list operation is built on.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"

	"github.com/biokgraph/biokg/internal/query"
)

// Store wraps the knowledge graph database connection.
type Store struct {
	db             *sql.DB
	log            *zap.Logger
	maxFilterDepth int
}

// Open opens (or creates) the knowledge graph database, runs migrations
// and bounds the connection pool. Queries beyond the bound queue on the
// pool rather than failing.
func Open(dbPath string, maxConns int, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// SetMaxFilterDepth overrides the filter tree depth bound. Zero keeps the
// compiler default.
func (s *Store) SetMaxFilterDepth(depth int) {
	s.maxFilterDepth = depth
}

func (s *Store) compiler() *query.Compiler {
	return query.NewCompiler(s.maxFilterDepth)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the import CLI.
func (s *Store) DB() *sql.DB {
	return s.db
}
