package db

import (
	"fmt"

	_ "github.com/lib/pq"
	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// validatePostgres parses rendered SQL with Postgres's real grammar
// before submitting it, catching a renderer bug as a typed
// DatabaseQueryError instead of a raw driver syntax error — grounded on
// the teacher's engine/validator/postgres.go ValidatePostgreSQL.
func validatePostgres(query string) error {
	if _, err := pg_query.Parse(query); err != nil {
		return fmt.Errorf("invalid postgres SQL: %w", err)
	}
	return nil
}
