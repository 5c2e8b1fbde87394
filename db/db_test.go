package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relq-lang/relq/db"
	"github.com/relq-lang/relq/sqlir"
)

func TestOpenSQLiteInMemoryAndRoundTrip(t *testing.T) {
	conn, err := db.Open("sqlite://:memory:", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, sqlir.SQLite, conn.Dialect())

	_, err = conn.Query(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`, nil)
	require.NoError(t, err)

	_, err = conn.Query(`INSERT INTO widgets (name) VALUES (?)`, []any{"sprocket"})
	require.NoError(t, err)

	id, err := conn.LastRowID()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	rows, err := conn.Query(`SELECT id, name FROM widgets`, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "sprocket", rows[0]["name"])
}

func TestListTablesAndImportTableTypes(t *testing.T) {
	conn, err := db.Open("sqlite://:memory:", nil)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Query(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`, nil)
	require.NoError(t, err)

	tables, err := conn.ListTables()
	require.NoError(t, err)
	assert.Contains(t, tables, "widgets")

	schema, err := conn.ImportTableTypes()
	require.NoError(t, err)
	require.Contains(t, schema, "widgets")
	assert.Len(t, schema["widgets"], 2)
}

func TestListNamespacesSQLiteIsMain(t *testing.T) {
	conn, err := db.Open("sqlite://:memory:", nil)
	require.NoError(t, err)
	defer conn.Close()

	names, err := conn.ListNamespaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, names)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := db.Open("ftp://nope", nil)
	require.Error(t, err)
}
