package crawl

import (
	"errors"
)

// Crawl failures fall into these categories. The underlying cause is
// wrapped alongside, so errors.Is works for both.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrFetch         = errors.New("fetch failed")
	ErrExtract       = errors.New("extraction failed")
	ErrStore         = errors.New("store failure")
	// ErrStopped is returned by Run on a crawler which has already finished.
	ErrStopped = errors.New("crawler already stopped")
)
