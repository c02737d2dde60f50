package crawl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/bcampbell/harvestomat/extract"
	"github.com/bcampbell/harvestomat/store"
)

type State int

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "STOPPED"
	}
	return "RUNNING"
}

// StopReason says why a crawl finished.
type StopReason int

const (
	NotStopped StopReason = iota
	TargetReached
	LastPage
	PageCap
)

func (r StopReason) String() string {
	switch r {
	case TargetReached:
		return "TARGET_REACHED"
	case LastPage:
		return "LAST_PAGE"
	case PageCap:
		return "PAGE_CAP"
	}
	return ""
}

// Result summarises a crawl.
type Result struct {
	Reason StopReason
	// Page is the cursor when the crawl ended
	Page int
	// Pages is the number of pages fetched and processed
	Pages int
	// Total is the number of known records
	Total int
	// Added is the number of rows added to the store by this crawl
	Added int
}

// Crawler walks the result pages for a single keyword, one page at a time,
// storing any listings it hasn't seen before.
type Crawler struct {
	cfg     Config
	sort    Sort
	db      store.Store
	fetcher Fetcher
	ext     *extract.Extractor

	// Parse turns raw markup into a document (extract.Parse by default)
	Parse func(r io.Reader) (extract.Node, error)
	// Found, if set, is called for each record added to the store
	Found   func(rec store.Record)
	ErrLog  store.Logger
	InfoLog store.Logger

	page   int
	known  *store.RecordSet
	state  State
	reason StopReason
}

// New validates cfg and loads the known records from db.
// The Crawler takes ownership of db, which is released by Close.
func New(cfg Config, db store.Store, f Fetcher, ext *extract.Extractor) (*Crawler, error) {
	sort, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	c := &Crawler{
		cfg:     cfg,
		sort:    sort,
		db:      db,
		fetcher: f,
		ext:     ext,
		Parse:   extract.Parse,
		ErrLog:  store.NullLogger(),
		InfoLog: store.NullLogger(),
		page:    cfg.StartPage,
		state:   Running,
	}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Crawler) Close() {
	c.db.Close()
}

func (c *Crawler) State() State {
	return c.state
}

func (c *Crawler) Reason() StopReason {
	return c.reason
}

// Known returns the number of records currently in the identity set.
func (c *Crawler) Known() int {
	return c.known.Len()
}

// PageURL returns the feed URL for a page number.
func (c *Crawler) PageURL(page int) string {
	return pageURL(c.cfg.URLTemplate, c.cfg.Keyword, c.sort, page)
}

// Run crawls pages until a stop condition is met or something fails.
// Any error is fatal to the crawl. There's no retrying: records from
// pages already processed are safe in the store, and another crawler
// can carry on from a later start page.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	if c.state == Stopped {
		return nil, ErrStopped
	}

	res := &Result{}
	for {
		if err := ctx.Err(); err != nil {
			return c.result(res), err
		}

		page, err := c.scrapePage(ctx)
		if err != nil {
			c.ErrLog.Printf("%s\n", err)
			return c.result(res), err
		}

		added, err := c.reconcile(page.Records)
		if err != nil {
			c.ErrLog.Printf("%s\n", err)
			return c.result(res), err
		}
		res.Pages++
		res.Added += added
		c.InfoLog.Printf("page %d: %d listings (%d new), collected %d records\n", c.page, len(page.Records), added, c.known.Len())

		reason := c.shouldStop(page.Last)
		if reason != NotStopped {
			c.state = Stopped
			c.reason = reason
			res.Reason = reason
			c.InfoLog.Printf("stopped at page %d (%s)\n", c.page, reason)
			return c.result(res), nil
		}
		c.page++
	}
}

func (c *Crawler) result(res *Result) *Result {
	res.Page = c.page
	res.Total = c.known.Len()
	return res
}

// shouldStop is checked after each page is stored. The page cap and target
// take precedence over the last-page flag.
func (c *Crawler) shouldStop(last bool) StopReason {
	switch {
	case c.page > c.cfg.MaxPage:
		return PageCap
	case c.known.Len() >= c.cfg.Target:
		return TargetReached
	case last:
		return LastPage
	}
	return NotStopped
}

func (c *Crawler) scrapePage(ctx context.Context) (*extract.Page, error) {
	u := c.PageURL(c.page)

	fetchCtx := ctx
	if c.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.cfg.FetchTimeout)
		defer cancel()
	}
	raw, err := c.fetcher.Fetch(fetchCtx, u)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrFetch, c.page, err)
	}

	root, err := c.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrExtract, c.page, err)
	}
	base, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrFetch, c.page, err)
	}
	page, err := c.ext.Extract(root, base)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrExtract, c.page, err)
	}
	if page.Rejected > 0 {
		c.InfoLog.Printf("page %d: rejected %d of %d candidates\n", c.page, page.Rejected, page.Candidates)
	}
	return page, nil
}

// reconcile stores the records we haven't seen, then reloads the identity
// set from the store so it reflects anything written by other crawlers too.
func (c *Crawler) reconcile(batch []store.Record) (int, error) {
	fresh := []store.Record{}
	batchSet := store.NewRecordSet(c.db.Key)
	for _, rec := range batch {
		if c.known.Has(rec) || !batchSet.Add(rec) {
			continue
		}
		fresh = append(fresh, rec)
	}

	added, err := c.db.InsertIfAbsent(fresh)
	if err != nil {
		return 0, fmt.Errorf("%w: page %d: %w", ErrStore, c.page, err)
	}
	if err := c.reload(); err != nil {
		return 0, err
	}

	if c.Found != nil {
		for _, rec := range fresh {
			if got, ok := c.known.Get(rec); ok && got == rec {
				c.Found(rec)
			}
		}
	}
	return added, nil
}

// reload rebuilds the identity set from the store.
func (c *Crawler) reload() error {
	recs, err := c.db.LoadAll()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	c.known = store.NewRecordSet(c.db.Key, recs...)
	return nil
}
