package sqlstore

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

// TestPostgres runs the store tests against a postgresql database.
// The connection string should be in envvar HARVESTOMAT_PGTEST, eg:
//
//    $ sudo -u postgres createdb -O harvesttest -E utf8 harvesttest
//    $ export HARVESTOMAT_PGTEST="user=harvesttest dbname=harvesttest host=/var/run/postgresql sslmode=disable"
//    $ go test
//
// If it is not set, the postgres testing is skipped.
func TestPostgres(t *testing.T) {
	connStr := os.Getenv("HARVESTOMAT_PGTEST")
	if connStr == "" {
		t.Skip("HARVESTOMAT_PGTEST not set - skipping postgresql tests")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err.Error())
	}

	ss, err := NewFromDB("postgres", db)
	if err != nil {
		t.Fatal(err.Error())
	}

	// Make sure we don't accidentally screw up real data!
	cnt, err := ss.Count()
	if err != nil {
		t.Fatal(err.Error())
	}
	if cnt > 0 {
		ss.Close()
		t.Fatal("Database already contains listings - refusing to clobber.")
	}

	// clear out db when we're done.
	defer func() {
		_, err = db.Exec("DELETE FROM listing")
		if err != nil {
			t.Fatal(err.Error())
		}
		ss.Close()
	}()

	performDBTests(t, ss)
}
