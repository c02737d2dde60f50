package crawl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sort is the result ordering requested from the search feed.
type Sort int

const (
	SortRelate Sort = iota
	SortNew
	SortOld
)

var sortNames = map[string]Sort{
	"relate": SortRelate,
	"new":    SortNew,
	"old":    SortOld,
}

func (s Sort) String() string {
	for name, v := range sortNames {
		if v == s {
			return name
		}
	}
	return fmt.Sprintf("Sort(%d)", int(s))
}

// ParseSort converts "relate", "new" or "old" to a Sort.
func ParseSort(s string) (Sort, error) {
	v, ok := sortNames[s]
	if !ok {
		return 0, fmt.Errorf("%w: bad sort %q (want relate, new or old)", ErrInvalidConfig, s)
	}
	return v, nil
}

// DefaultURLTemplate is the Naver news search. {query}, {sort} and {start}
// are filled in for each page.
const DefaultURLTemplate = "https://search.naver.com/search.naver?where=news&sm=tab_pge&query={query}&sort={sort}&photo=0&field=0&pd=0&ds=&de=&mynews=0&office_type=0&office_section_code=0&news_office_checked=&nso=so:r,p:all,a:all&start={start}"

// DefaultMaxPage is the last page the crawler will fetch.
const DefaultMaxPage = 400

// the feed serves 10 results per page, with a 1-based result offset
const resultsPerPage = 10

type Config struct {
	Keyword string
	// Sort is one of "relate", "new" or "old"
	Sort      string
	StartPage int
	// Target is the number of stored records at which to stop
	Target int
	// MaxPage caps the page cursor (DefaultMaxPage if 0)
	MaxPage int
	// URLTemplate defaults to DefaultURLTemplate
	URLTemplate string
	// FetchTimeout bounds each page fetch (0 = no limit)
	FetchTimeout time.Duration
}

// validate checks the config and fills in defaults.
func (cfg *Config) validate() (Sort, error) {
	sort, err := ParseSort(cfg.Sort)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(cfg.Keyword) == "" {
		return 0, fmt.Errorf("%w: no keyword", ErrInvalidConfig)
	}
	if cfg.StartPage < 1 {
		return 0, fmt.Errorf("%w: bad start page %d", ErrInvalidConfig, cfg.StartPage)
	}
	if cfg.Target < 1 {
		return 0, fmt.Errorf("%w: bad target %d", ErrInvalidConfig, cfg.Target)
	}
	if cfg.MaxPage == 0 {
		cfg.MaxPage = DefaultMaxPage
	}
	if cfg.MaxPage < 0 {
		return 0, fmt.Errorf("%w: bad max page %d", ErrInvalidConfig, cfg.MaxPage)
	}
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if !strings.Contains(cfg.URLTemplate, "{start}") {
		return 0, fmt.Errorf("%w: url template has no {start}", ErrInvalidConfig)
	}
	if cfg.FetchTimeout < 0 {
		return 0, fmt.Errorf("%w: bad fetch timeout %s", ErrInvalidConfig, cfg.FetchTimeout)
	}
	return sort, nil
}

// pageURL fills in the template for the given page number.
func pageURL(tmpl string, keyword string, sort Sort, page int) string {
	start := page*resultsPerPage - (resultsPerPage - 1)
	r := strings.NewReplacer(
		"{query}", url.QueryEscape(keyword),
		"{sort}", strconv.Itoa(int(sort)),
		"{start}", strconv.Itoa(start),
	)
	return r.Replace(tmpl)
}
