package main

import (
	"strings"

	"github.com/bcampbell/harvestomat/crawl"
	"github.com/bcampbell/harvestomat/extract"
	"gopkg.in/gcfg.v1"
)

// Config is the layout of the harvest.cfg file, eg:
//
//   [crawl]
//   keyword = 인공지능
//   sort = new
//   target = 500
//
//   [store]
//   db = ai.db
//
//   [http]
//   timeout = 30
//
// gcfg treats double quotes specially, so layout paths containing them
// need quoting, eg: item = "//*[@class=\"bx\"]"
type Config struct {
	Crawl struct {
		Keyword   string
		Sort      string
		StartPage int
		Target    int
		MaxPage   int
		// URLTemplate overrides the search feed url
		URLTemplate string
		// SkipMalformed drops listings with missing fields rather than
		// failing the page
		SkipMalformed bool
		// LinkIdentity includes the link in the record identity
		LinkIdentity bool
	}
	Store struct {
		Driver string
		DB     string
	}
	HTTP struct {
		UserAgent  string
		CookieFile string
		// Timeout for each page fetch, in seconds (0=none)
		Timeout    int
		ArchiveDir string
	}
	Layout struct {
		Item           string
		ItemLinks      string
		ItemLinkCount  int
		Publisher      string
		Title          string
		TitleAttr      string
		LinkAttr       string
		PageSize       int
		EndSel         string
		// NormalizeLinks tidies stored links (changes identity under
		// linkidentity, so leave it alone on existing databases)
		NormalizeLinks bool
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Crawl.Sort = "new"
	cfg.Crawl.StartPage = 1
	cfg.Crawl.Target = 1000
	cfg.Crawl.MaxPage = crawl.DefaultMaxPage
	cfg.Crawl.URLTemplate = crawl.DefaultURLTemplate
	cfg.HTTP.Timeout = 30

	l := extract.NaverLayout
	cfg.Layout.Item = l.Item
	cfg.Layout.ItemLinks = l.ItemLinks
	cfg.Layout.ItemLinkCount = l.ItemLinkCount
	cfg.Layout.Publisher = l.Publisher
	cfg.Layout.Title = l.Title
	cfg.Layout.TitleAttr = l.TitleAttr
	cfg.Layout.LinkAttr = l.LinkAttr
	cfg.Layout.PageSize = l.PageSize
	cfg.Layout.EndSel = l.EndSel
	cfg.Layout.NormalizeLinks = l.NormalizeLinks
	return cfg
}

// readConfig returns the defaults, overridden by filename if given.
func readConfig(filename string) (*Config, error) {
	cfg := defaultConfig()
	if filename == "" {
		return cfg, nil
	}
	err := gcfg.ReadFileInto(cfg, filename)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) layout() extract.Layout {
	return extract.Layout{
		Item:          cfg.Layout.Item,
		ItemLinks:     cfg.Layout.ItemLinks,
		ItemLinkCount: cfg.Layout.ItemLinkCount,
		Publisher:     cfg.Layout.Publisher,
		Title:         cfg.Layout.Title,
		TitleAttr:     cfg.Layout.TitleAttr,
		LinkAttr:      cfg.Layout.LinkAttr,
		PageSize:      cfg.Layout.PageSize,
		EndSel:        cfg.Layout.EndSel,

		NormalizeLinks: cfg.Layout.NormalizeLinks,
	}
}

// feedHost returns the scheme and host of the search feed, for cookies.
func (cfg *Config) feedHost() string {
	u := cfg.Crawl.URLTemplate
	if i := strings.IndexAny(u, "?{"); i >= 0 {
		u = u[:i]
	}
	return u
}
