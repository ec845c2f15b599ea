package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/userdir/internal/userdir/store"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Store implements store.Store on database/sql. The driver name selects the
// dialect strategy once at construction; nothing else branches on the engine.
type Store struct {
	db *sql.DB
	d  dialect
}

// NewStore opens a database handle for the given driver ("sqlite", "mysql"
// or "postgres") and DSN. The schema is not touched here; call EnsureSchema
// before first use.
func NewStore(driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// Enforce FKs and avoid SQLITE_BUSY under concurrent writers.
		if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{db: db, d: d}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect reports which engine dialect the store was opened with.
func (s *Store) Dialect() string { return s.d.Name() }

// EnsureSchema runs the dialect's idempotent DDL. Safe to repeat across
// restarts; the first failing statement aborts and is returned.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.d.SchemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqldb: ensure schema (%s): %w", s.d.Name(), err)
		}
	}
	return nil
}

func (s *Store) Accounts() store.Accounts { return &accountsRepo{db: s.db, d: s.d} }
func (s *Store) Bindings() store.Bindings { return &bindingsRepo{db: s.db, d: s.d} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
