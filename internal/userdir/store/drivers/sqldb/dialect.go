package sqldb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	sqlite "modernc.org/sqlite"
)

// dialect abstracts the engine differences: DDL syntax, placeholder
// style, how to read back a generated id, and how the driver reports a
// uniqueness violation. The logical schema is identical across engines.
type dialect interface {
	Name() string

	// SchemaStatements returns the idempotent DDL for the accounts and
	// bindings tables, in execution order.
	SchemaStatements() []string

	// Rebind rewrites ?-style placeholders into the engine's native form.
	Rebind(query string) string

	// InsertReturnsID reports whether INSERT ... RETURNING id must be used
	// instead of sql.Result.LastInsertId.
	InsertReturnsID() bool

	// BindingUpsert is the insert-or-replace statement for the bindings
	// table, keyed on peer_id, with (email, peer_id) parameters.
	BindingUpsert() string

	// IsDuplicate reports whether err is the engine's uniqueness
	// constraint violation.
	IsDuplicate(err error) bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite":
		return sqliteDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("sqldb: unsupported driver %q", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			email TEXT,
			password_hash TEXT,
			is_staff BOOL NOT NULL,
			is_active BOOL NOT NULL,
			created_at INTEGER
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_idx ON accounts (email)`,
		`CREATE TABLE IF NOT EXISTS bindings (email TEXT, peer_id TEXT)`,
		`CREATE INDEX IF NOT EXISTS bindings_email_idx ON bindings (email)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS bindings_peer_idx ON bindings (peer_id)`,
	}
}

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) InsertReturnsID() bool { return false }

func (sqliteDialect) BindingUpsert() string {
	return `INSERT INTO bindings (email, peer_id) VALUES (?, ?)
		ON CONFLICT (peer_id) DO UPDATE SET email = excluded.email`
}

func (sqliteDialect) IsDuplicate(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// SQLITE_CONSTRAINT_UNIQUE / SQLITE_CONSTRAINT_PRIMARYKEY
	return se.Code() == 2067 || se.Code() == 1555
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
			email VARCHAR(255),
			password_hash VARCHAR(255),
			is_staff BOOL NOT NULL,
			is_active BOOL NOT NULL,
			created_at BIGINT,
			UNIQUE INDEX (email)
		) ENGINE=INNODB`,
		`CREATE TABLE IF NOT EXISTS bindings (
			email VARCHAR(255),
			peer_id CHAR(41),
			UNIQUE INDEX (peer_id),
			INDEX (email(20))
		) ENGINE=INNODB`,
	}
}

func (mysqlDialect) Rebind(query string) string { return query }

func (mysqlDialect) InsertReturnsID() bool { return false }

func (mysqlDialect) BindingUpsert() string {
	return `INSERT INTO bindings (email, peer_id) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE email = VALUES(email)`
}

func (mysqlDialect) IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) SchemaStatements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			email VARCHAR(255),
			password_hash VARCHAR(255),
			is_staff BOOL NOT NULL,
			is_active BOOL NOT NULL,
			created_at BIGINT,
			UNIQUE (email)
		)`,
		`CREATE TABLE IF NOT EXISTS bindings (
			email VARCHAR(255),
			peer_id CHAR(41),
			UNIQUE (peer_id)
		)`,
		`CREATE INDEX IF NOT EXISTS bindings_email_idx ON bindings (email)`,
	}
}

// Rebind rewrites ? placeholders to $1..$n. Queries in this package never
// contain literal question marks, so a plain scan is enough.
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := range len(query) {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) InsertReturnsID() bool { return true }

func (postgresDialect) BindingUpsert() string {
	return `INSERT INTO bindings (email, peer_id) VALUES (?, ?)
		ON CONFLICT (peer_id) DO UPDATE SET email = EXCLUDED.email`
}

func (postgresDialect) IsDuplicate(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == "23505"
}
