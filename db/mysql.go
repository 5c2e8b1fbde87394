package db

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/xwb1989/sqlparser"
)

// validateMySQL parses rendered SQL with a real MySQL-grammar parser
// before submitting it, grounded on the teacher's
// engine/validator/mysql.go ValidateMySQL.
func validateMySQL(query string) error {
	if _, err := sqlparser.Parse(query); err != nil {
		return fmt.Errorf("invalid mysql SQL: %w", err)
	}
	return nil
}
