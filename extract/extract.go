package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
	"github.com/bcampbell/harvestomat/store"
)

// Layout describes where the listings live in a results page.
// The paths are XPath, relative to a candidate element except for Item.
type Layout struct {
	// Item finds candidate listing elements in the page
	Item           string
	// ItemLinks finds the links inside a candidate. A real listing has
	// exactly ItemLinkCount of them, and the last one is the article link
	// (any before it are thumbnail or publisher links).
	ItemLinks      string
	ItemLinkCount  int
	// Publisher is the element whose trailing text is the publisher name
	Publisher      string
	// Title is the headline element, TitleAttr the attribute holding its text
	Title          string
	TitleAttr      string
	LinkAttr       string
	// PageSize is the number of candidates on a full page. Any fewer and
	// we assume there are no more pages.
	PageSize       int
	// EndSel is an optional CSS selector. If it matches anything, the page
	// is taken to be the last one regardless of candidate count.
	EndSel         string
	// NormalizeLinks tidies stored links with purell (lowercased host,
	// default port dropped etc). Off by default, as it changes the
	// stored link and so the identity under KeyWithLink.
	NormalizeLinks bool
}

// NaverLayout matches the Naver news search results page.
var NaverLayout = Layout{
	Item:          `//*[@class="bx"]`,
	ItemLinks:     `.//div/div/div/div[2]/a`,
	ItemLinkCount: 2,
	Publisher:     `./div/div/div/div[2]/a/span`,
	Title:         `./div/div/a`,
	TitleAttr:     "title",
	LinkAttr:      "href",
	PageSize:      10,
}

// ErrMissingField is returned (wrapped in a FieldError) when a listing
// lacks one of the elements or attributes a record is built from.
var ErrMissingField = errors.New("missing field")

type FieldError struct {
	Field string
	Path  string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Field, e.Path, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func missing(field, path string) error {
	return &FieldError{Field: field, Path: path, Err: ErrMissingField}
}

// Page is the outcome of extracting one results page.
type Page struct {
	Records []store.Record
	// Last is set if this looks like the final page of results
	Last bool
	// Candidates is the number of candidate elements found
	Candidates int
	// Rejected counts candidates which didn't yield a record
	Rejected int
}

type Extractor struct {
	Layout
	// SkipMalformed drops a listing with missing fields instead of failing
	// the whole page.
	SkipMalformed bool
	ErrLog        store.Logger
}

// NewExtractor checks the layout paths compile and returns an Extractor
// using them.
func NewExtractor(layout Layout) (*Extractor, error) {
	paths := []struct{ name, expr string }{
		{"item", layout.Item},
		{"itemlinks", layout.ItemLinks},
		{"publisher", layout.Publisher},
		{"title", layout.Title},
	}
	for _, p := range paths {
		if p.expr == "" {
			return nil, fmt.Errorf("layout: %s path missing", p.name)
		}
		if _, err := xpath.Compile(p.expr); err != nil {
			return nil, fmt.Errorf("layout: bad %s path %q: %w", p.name, p.expr, err)
		}
	}
	if layout.EndSel != "" {
		if _, err := cascadia.Compile(layout.EndSel); err != nil {
			return nil, fmt.Errorf("layout: bad endsel %q: %w", layout.EndSel, err)
		}
	}
	if layout.PageSize < 1 {
		return nil, fmt.Errorf("layout: bad pagesize %d", layout.PageSize)
	}
	if layout.ItemLinkCount < 1 {
		return nil, fmt.Errorf("layout: bad itemlinkcount %d", layout.ItemLinkCount)
	}
	if layout.TitleAttr == "" {
		layout.TitleAttr = "title"
	}
	if layout.LinkAttr == "" {
		layout.LinkAttr = "href"
	}
	return &Extractor{Layout: layout, ErrLog: store.NullLogger()}, nil
}

// Extract pulls the listings out of a results page. pageURL, if not nil,
// is used to resolve relative links.
func (ext *Extractor) Extract(root Node, pageURL *url.URL) (*Page, error) {
	cands, err := ext.Candidates(root)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Candidates: len(cands),
		Last:       len(cands) < ext.PageSize,
	}
	if !page.Last && ext.EndSel != "" {
		ends, err := root.Select(ext.EndSel)
		if err != nil {
			return nil, err
		}
		page.Last = len(ends) > 0
	}

	for i, cand := range cands {
		ok, err := ext.Matches(cand)
		if err != nil {
			return nil, err
		}
		if !ok {
			page.Rejected++
			continue
		}
		rec, err := ext.Record(cand, pageURL)
		if err != nil {
			var fe *FieldError
			if ext.SkipMalformed && errors.As(err, &fe) {
				ext.ErrLog.Printf("skip candidate %d: %s\n", i, err)
				page.Rejected++
				continue
			}
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

// Candidates returns the elements which might be listings.
func (ext *Extractor) Candidates(root Node) ([]Node, error) {
	return root.Query(ext.Item)
}

// Matches reports whether a candidate has the shape of a real listing.
func (ext *Extractor) Matches(cand Node) (bool, error) {
	links, err := cand.Query(ext.ItemLinks)
	if err != nil {
		return false, err
	}
	return len(links) == ext.ItemLinkCount, nil
}

// Record builds a Record from a single listing element.
func (ext *Extractor) Record(cand Node, pageURL *url.URL) (store.Record, error) {
	var rec store.Record

	pubs, err := cand.Query(ext.Publisher)
	if err != nil {
		return rec, err
	}
	if len(pubs) == 0 {
		return rec, missing("publisher", ext.Publisher)
	}
	pub, ok := pubs[0].Tail()
	if !ok {
		return rec, missing("publisher", ext.Publisher)
	}

	links, err := cand.Query(ext.ItemLinks)
	if err != nil {
		return rec, err
	}
	if len(links) == 0 {
		return rec, missing("link", ext.ItemLinks)
	}
	href, ok := links[len(links)-1].Attr(ext.LinkAttr)
	if !ok {
		return rec, missing("link", ext.ItemLinks)
	}
	link := ext.cookLink(pageURL, href)

	titles, err := cand.Query(ext.Title)
	if err != nil {
		return rec, err
	}
	if len(titles) == 0 {
		return rec, missing("title", ext.Title)
	}
	title, ok := titles[0].Attr(ext.TitleAttr)
	if !ok {
		return rec, missing("title", ext.Title)
	}

	rec.Publisher = strings.TrimSpace(pub)
	rec.Link = link
	rec.Title = strings.TrimSpace(title)
	return rec, nil
}

// cookLink resolves a relative href against the page. Absolute links
// are kept as served, as are any which won't parse: a link that is
// present is never an error.
func (ext *Extractor) cookLink(pageURL *url.URL, href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if !u.IsAbs() && pageURL != nil {
		u = pageURL.ResolveReference(u)
	} else if !ext.NormalizeLinks {
		return href
	}
	if ext.NormalizeLinks {
		return purell.NormalizeURL(u, purell.FlagsSafe)
	}
	return u.String()
}
