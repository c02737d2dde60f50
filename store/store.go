package store

// Logger is the minimal logging interface used throughout harvestomat.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
}

type nullLogger struct{}

func (l nullLogger) Printf(format string, v ...interface{}) {
}

// NullLogger returns a Logger which discards everything.
func NullLogger() Logger {
	return nullLogger{}
}

// Store is a persistent, append-only table of Records keyed by identity.
type Store interface {
	// Key returns the persistent identity key for r.
	Key(r Record) int64
	// LoadAll returns every stored record.
	LoadAll() ([]Record, error)
	// InsertIfAbsent stores recs. A record whose key already exists is
	// silently skipped. Returns the number of rows actually added.
	InsertIfAbsent(recs []Record) (int, error)
	Count() (int, error)
	Close()
}
