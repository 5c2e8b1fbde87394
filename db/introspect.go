package db

import (
	"context"

	"github.com/relq-lang/relq/rqerr"
	"github.com/relq-lang/relq/sqlir"
)

// ListTables enumerates base table names in the connected database,
// per-dialect (spec.md §4.4's `list_tables()`), so the CLI/REPL and
// `import_table_types` can both discover schema that already exists
// rather than only tables relq itself defined.
func (d *DB) ListTables() ([]string, error) {
	q, args := listTablesQuery(d.dialect)
	rows, err := d.sqlDB.QueryContext(context.Background(), q, args...)
	if err != nil {
		return nil, rqerr.NewDatabaseQueryError(q, err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func listTablesQuery(dialect sqlir.Dialect) (string, []any) {
	switch dialect {
	case sqlir.Postgres:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'`, nil
	case sqlir.MySQL:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE()`, nil
	default:
		return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`, nil
	}
}

// ListNamespaces reports the schema/database namespaces visible to this
// connection (spec.md §4.4's `list_namespaces()`). SQLite has no
// concept of multiple schemas per connection beyond ATTACHed databases,
// so it always reports the single implicit "main" namespace.
func (d *DB) ListNamespaces() ([]string, error) {
	switch d.dialect {
	case sqlir.Postgres:
		rows, err := d.sqlDB.QueryContext(context.Background(),
			`SELECT schema_name FROM information_schema.schemata WHERE schema_name NOT LIKE 'pg_%' AND schema_name != 'information_schema'`)
		if err != nil {
			return nil, rqerr.NewDatabaseQueryError("list_namespaces", err)
		}
		defer rows.Close()
		var names []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, err
			}
			names = append(names, name)
		}
		return names, rows.Err()
	case sqlir.MySQL:
		var name string
		if err := d.sqlDB.QueryRowContext(context.Background(), `SELECT DATABASE()`).Scan(&name); err != nil {
			return nil, rqerr.NewDatabaseQueryError("list_namespaces", err)
		}
		return []string{name}, nil
	default:
		return []string{"main"}, nil
	}
}

// ImportTableTypes introspects every existing table's columns (spec.md
// §4.4's `import_table_types()`), letting relq seed its namespace with
// types.Type values for tables that were never declared by a `table`
// statement in the current script — e.g. a database opened from an
// existing file.
func (d *DB) ImportTableTypes() (map[string][]ColumnInfo, error) {
	tables, err := d.ListTables()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]ColumnInfo, len(tables))
	for _, table := range tables {
		cols, err := d.tableColumns(table)
		if err != nil {
			return nil, err
		}
		out[table] = cols
	}
	return out, nil
}

func (d *DB) tableColumns(table string) ([]ColumnInfo, error) {
	q, args := columnsQuery(d.dialect, table)
	rows, err := d.sqlDB.QueryContext(context.Background(), q, args...)
	if err != nil {
		return nil, rqerr.NewDatabaseQueryError(q, err)
	}
	defer rows.Close()
	var cols []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		var nullable string
		switch d.dialect {
		case sqlir.SQLite:
			var cid int
			var dflt any
			var pk int
			if err := rows.Scan(&cid, &c.Name, &c.SQLType, &nullable, &dflt, &pk); err != nil {
				return nil, err
			}
			c.Nullable = nullable == "0"
		default:
			if err := rows.Scan(&c.Name, &c.SQLType, &nullable); err != nil {
				return nil, err
			}
			c.Nullable = nullable == "YES"
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func columnsQuery(dialect sqlir.Dialect, table string) (string, []any) {
	switch dialect {
	case sqlir.Postgres:
		return `SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_name = $1`, []any{table}
	case sqlir.MySQL:
		return `SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?`, []any{table}
	default:
		return `PRAGMA table_info(` + dialect.Quote(table) + `)`, nil
	}
}
