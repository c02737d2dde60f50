package sqlstore

import (
	"fmt"
)

// checkSchema creates the listing table if it isn't already there.
// There is no upgrade path - the table has only ever had one shape.
func (ss *SQLStore) checkSchema() error {
	var idType string
	switch ss.driverName {
	case "sqlite3":
		idType = "INTEGER"
	case "postgres", "pgx", "pq-timeouts", "cloudsqlpostgres":
		idType = "BIGINT"
	default:
		return fmt.Errorf("unsupported driver %q", ss.driverName)
	}

	stmt := `CREATE TABLE IF NOT EXISTS listing (
		id ` + idType + ` PRIMARY KEY,
		publisher TEXT NOT NULL,
		link TEXT NOT NULL,
		title TEXT NOT NULL,
		UNIQUE(id))`

	_, err := ss.db.Exec(stmt)
	return err
}
