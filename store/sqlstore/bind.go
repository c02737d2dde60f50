package sqlstore

import (
	"strconv"
	"strings"
)

// Adapted from github.com/jmoiron/sqlx (MIT license).
// Only the two placeholder styles our drivers use are handled.

const (
	QUESTION = iota
	DOLLAR
)

// bindType returns the placeholder style for a driver.
func bindType(driverName string) int {
	switch driverName {
	case "postgres", "pgx", "pq-timeouts", "cloudsqlpostgres":
		return DOLLAR
	}
	return QUESTION
}

// rebind rewrites '?' placeholders into the target style.
func rebind(bindType int, query string) string {
	if bindType == QUESTION {
		return query
	}

	rqb := make([]byte, 0, len(query)+10)
	j := 0
	for i := strings.IndexByte(query, '?'); i != -1; i = strings.IndexByte(query, '?') {
		rqb = append(rqb, query[:i]...)
		rqb = append(rqb, '$')
		j++
		rqb = strconv.AppendInt(rqb, int64(j), 10)
		query = query[i+1:]
	}
	return string(append(rqb, query...))
}
