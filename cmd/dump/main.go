package main

// dump the records in a harvest database to stdout

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/bcampbell/harvestomat/store/sqlstore"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var opts struct {
	driver   string
	connStr  string
	format   string
	withKeys bool
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "%s [OPTIONS]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, `
Dumps every record in a harvest database, ordered by identity key.

`)
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.connStr, "db", "", "database connection string (or set HARVESTOMAT_DB)")
	flag.StringVar(&opts.driver, "driver", "", "database driver name (defaults to sqlite3 if HARVESTOMAT_DRIVER is unset)")
	flag.StringVar(&opts.format, "f", "csv", "output format (csv, json)")
	flag.BoolVar(&opts.withKeys, "k", false, "include the stored id of each record")
	flag.Parse()

	db, err := sqlstore.NewWithEnv(opts.driver, opts.connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
	err = dump(os.Stdout, db, opts.format, opts.withKeys)
	db.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

// rowSource is anything which can hand back the stored rows.
type rowSource interface {
	LoadRows() ([]sqlstore.Row, error)
}

func dump(out io.Writer, db rowSource, format string, withKeys bool) error {
	rows, err := db.LoadRows()
	if err != nil {
		return err
	}

	switch format {
	case "csv":
		return dumpCSV(out, rows, withKeys)
	case "json":
		return dumpJSON(out, rows, withKeys)
	default:
		return fmt.Errorf("unknown format '%s'", format)
	}
}

// dumpCSV writes the rows out with a header line. With withKeys set, the
// id column is the one stored, whichever key function produced it.
func dumpCSV(out io.Writer, rows []sqlstore.Row, withKeys bool) error {
	w := csv.NewWriter(out)
	hdr := []string{"publisher", "title", "link"}
	if withKeys {
		hdr = append([]string{"id"}, hdr...)
	}
	if err := w.Write(hdr); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{r.Publisher, r.Title, r.Link}
		if withKeys {
			row = append([]string{strconv.FormatInt(r.ID, 10)}, row...)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// dumpJSON writes one JSON object per line.
func dumpJSON(out io.Writer, rows []sqlstore.Row, withKeys bool) error {
	enc := json.NewEncoder(out)
	for _, r := range rows {
		var err error
		if withKeys {
			err = enc.Encode(r)
		} else {
			err = enc.Encode(r.Record)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
