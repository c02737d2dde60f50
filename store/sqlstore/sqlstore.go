package sqlstore

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/bcampbell/harvestomat/store"
)

// SQLStore keeps harvested records in a single table of an SQL database.
type SQLStore struct {
	db         *sql.DB
	driverName string
	key        store.KeyFunc
	ErrLog     store.Logger
	DebugLog   store.Logger
}

// eg "postgres", "postgres://username@localhost/dbname"
// eg "sqlite3", "/tmp/foo.db"
func New(driver string, connStr string) (*SQLStore, error) {
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, err
	}
	return NewFromDB(driver, db)
}

func NewFromDB(driver string, db *sql.DB) (*SQLStore, error) {
	err := db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	ss := SQLStore{
		db:         db,
		driverName: driver,
		key:        store.IdentityKey,
		ErrLog:     store.NullLogger(),
		DebugLog:   store.NullLogger(),
	}

	err = ss.checkSchema()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ss, nil
}

// Same as New(), but if driver or connStr is missing, will try and read them
// from environment vars: HARVESTOMAT_DRIVER & HARVESTOMAT_DB.
// If both driver and HARVESTOMAT_DRIVER are empty, default is "sqlite3".
func NewWithEnv(driver string, connStr string) (*SQLStore, error) {
	if connStr == "" {
		connStr = os.Getenv("HARVESTOMAT_DB")
	}
	if driver == "" {
		driver = os.Getenv("HARVESTOMAT_DRIVER")
		if driver == "" {
			driver = "sqlite3"
		}
	}

	if connStr == "" {
		return nil, fmt.Errorf("no database specified (set HARVESTOMAT_DB?)")
	}

	return New(driver, connStr)
}

func (ss *SQLStore) Close() {
	if ss.db != nil {
		ss.db.Close()
		ss.db = nil
	}
}

// SetKeyFunc changes the function used to derive row ids.
// Must be consistent for the lifetime of a database, or identities
// stored under the old function won't be recognised.
func (ss *SQLStore) SetKeyFunc(key store.KeyFunc) {
	ss.key = key
}

func (ss *SQLStore) Key(r store.Record) int64 {
	return ss.key(r)
}

func (ss *SQLStore) rebind(q string) string {
	return rebind(bindType(ss.driverName), q)
}

// Row is a record along with the id it was stored under.
type Row struct {
	ID int64 `json:"id"`
	store.Record
}

// LoadAll returns every record in the database, in id order.
func (ss *SQLStore) LoadAll() ([]store.Record, error) {
	rows, err := ss.LoadRows()
	if err != nil {
		return nil, err
	}
	out := make([]store.Record, len(rows))
	for i, row := range rows {
		out[i] = row.Record
	}
	return out, nil
}

// LoadRows is LoadAll with the stored ids, which may have come from a
// different key function than the one the store is currently using.
func (ss *SQLStore) LoadRows() ([]Row, error) {
	q := `SELECT id, publisher, link, title FROM listing ORDER BY id`
	rows, err := ss.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Publisher, &r.Link, &r.Title); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ss.DebugLog.Printf("loaded %d records\n", len(out))
	return out, nil
}

// InsertIfAbsent adds recs in a single transaction. Rows whose id is already
// taken are left alone, so the first record stored under an id wins.
func (ss *SQLStore) InsertIfAbsent(recs []store.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := ss.db.Begin()
	if err != nil {
		return 0, err
	}

	added, err := ss.insert(tx, recs)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	ss.DebugLog.Printf("inserted %d of %d records\n", added, len(recs))
	return added, nil
}

func (ss *SQLStore) insert(tx *sql.Tx, recs []store.Record) (int, error) {
	stmt, err := tx.Prepare(ss.rebind(`INSERT INTO listing(id, publisher, link, title) VALUES(?,?,?,?) ON CONFLICT (id) DO NOTHING`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, r := range recs {
		result, err := stmt.Exec(ss.key(r), r.Publisher, r.Link, r.Title)
		if err != nil {
			return 0, fmt.Errorf("insert failed on %q (%s): %w", r.Title, r.Publisher, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		added += int(n)
	}
	return added, nil
}

func (ss *SQLStore) Count() (int, error) {
	var cnt int
	err := ss.db.QueryRow(`SELECT COUNT(*) FROM listing`).Scan(&cnt)
	return cnt, err
}
