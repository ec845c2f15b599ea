package sqldb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"sqlite", "mysql", "postgres"} {
		d, err := dialectFor(name)
		require.NoError(t, err)
		require.Equal(t, name, d.Name())
	}

	_, err := dialectFor("oracle")
	require.Error(t, err)
}

func TestSchemaStatementsAreIdempotentDDL(t *testing.T) {
	t.Parallel()

	// Every statement must be repeat-safe; the schema manager runs on
	// every startup.
	for _, name := range []string{"sqlite", "mysql", "postgres"} {
		d, err := dialectFor(name)
		require.NoError(t, err)
		require.NotEmpty(t, d.SchemaStatements())
		for _, stmt := range d.SchemaStatements() {
			require.Contains(t, stmt, "IF NOT EXISTS", "dialect %s: %s", name, stmt)
		}
	}
}

func TestSchemaDialectShapes(t *testing.T) {
	t.Parallel()

	t.Run("sqlite uses AUTOINCREMENT and separate indexes", func(t *testing.T) {
		stmts := sqliteDialect{}.SchemaStatements()
		require.Len(t, stmts, 5)
		require.Contains(t, stmts[0], "AUTOINCREMENT")
		require.Contains(t, stmts[1], "CREATE UNIQUE INDEX")
		require.Contains(t, stmts[4], "bindings_peer_idx")
	})

	t.Run("mysql uses AUTO_INCREMENT and InnoDB", func(t *testing.T) {
		stmts := mysqlDialect{}.SchemaStatements()
		require.Len(t, stmts, 2)
		for _, stmt := range stmts {
			require.Contains(t, stmt, "ENGINE=INNODB")
		}
		require.Contains(t, stmts[0], "AUTO_INCREMENT")
		require.Contains(t, stmts[0], "UNIQUE INDEX (email)")
	})

	t.Run("postgres uses SERIAL and UNIQUE constraints", func(t *testing.T) {
		stmts := postgresDialect{}.SchemaStatements()
		require.Contains(t, stmts[0], "SERIAL PRIMARY KEY")
		require.Contains(t, stmts[0], "UNIQUE (email)")
		require.Contains(t, stmts[1], "UNIQUE (peer_id)")
	})
}

func TestPostgresRebind(t *testing.T) {
	t.Parallel()

	d := postgresDialect{}
	require.Equal(t,
		"SELECT id FROM accounts WHERE email = $1 AND is_staff = $2",
		d.Rebind("SELECT id FROM accounts WHERE email = ? AND is_staff = ?"))
	require.Equal(t, "SELECT 1", d.Rebind("SELECT 1"))
}

func TestRebindPassthrough(t *testing.T) {
	t.Parallel()

	q := "INSERT INTO accounts (email) VALUES (?)"
	require.Equal(t, q, sqliteDialect{}.Rebind(q))
	require.Equal(t, q, mysqlDialect{}.Rebind(q))
}

func TestIsDuplicateIgnoresForeignErrors(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"sqlite", "mysql", "postgres"} {
		d, derr := dialectFor(name)
		require.NoError(t, derr)
		require.False(t, d.IsDuplicate(nil))
		require.False(t, d.IsDuplicate(errTest{}))
	}
}

type errTest struct{}

func (errTest) Error() string { return "some other failure" }
