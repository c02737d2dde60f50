package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/bcampbell/harvestomat/arc"
	"github.com/bcampbell/harvestomat/crawl"
	"github.com/bcampbell/harvestomat/extract"
	"github.com/bcampbell/harvestomat/store"
	"github.com/bcampbell/harvestomat/store/sqlstore"
	"github.com/flytam/filenamify"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var opts struct {
	configFile string
	verbosity  int
	list       bool

	sort          string
	startPage     int
	target        int
	maxPage       int
	driver        string
	db            string
	userAgent     string
	cookieFile    string
	timeout       int
	archiveDir    string
	linkIdentity  bool
	skipMalformed bool
}

func init() {
	flag.StringVar(&opts.configFile, "c", "", "config `file` (optional)")
	flag.IntVar(&opts.verbosity, "v", 1, "verbosity of output (0=errors only 1=info 2=debug)")
	flag.BoolVar(&opts.list, "l", false, "list newly-found records to stdout as csv")
	flag.StringVar(&opts.sort, "sort", "", "result order: relate, new or old")
	flag.IntVar(&opts.startPage, "start", 0, "page to start on")
	flag.IntVar(&opts.target, "target", 0, "stop once the database holds this many records")
	flag.IntVar(&opts.maxPage, "maxpage", 0, "don't go beyond this page")
	flag.StringVar(&opts.driver, "driver", "", "database driver name (defaults to sqlite3 if HARVESTOMAT_DRIVER is unset)")
	flag.StringVar(&opts.db, "db", "", "database connection string (or set HARVESTOMAT_DB). Default is <keyword>.db")
	flag.StringVar(&opts.userAgent, "ua", "", "User-Agent header to send")
	flag.StringVar(&opts.cookieFile, "cookies", "", "load cookies from `file` (cookies.txt format)")
	flag.IntVar(&opts.timeout, "timeout", 0, "per-page fetch timeout in seconds")
	flag.StringVar(&opts.archiveDir, "archive", "", "`dir` to dump .warc files of fetched pages into")
	flag.BoolVar(&opts.linkIdentity, "linkid", false, "include link in record identity (default is publisher+title)")
	flag.BoolVar(&opts.skipMalformed, "skipbad", false, "skip malformed listings instead of aborting")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [KEYWORD]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, `
Harvests news listings (publisher, link, title) from search results for
KEYWORD, storing any not already in the database.
Stops when the target is reached, the results run out or the page cap is hit.
`)
		flag.PrintDefaults()
	}
}

// applyFlags copies any flags given on the command line over the config.
func applyFlags(cfg *Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sort":
			cfg.Crawl.Sort = opts.sort
		case "start":
			cfg.Crawl.StartPage = opts.startPage
		case "target":
			cfg.Crawl.Target = opts.target
		case "maxpage":
			cfg.Crawl.MaxPage = opts.maxPage
		case "driver":
			cfg.Store.Driver = opts.driver
		case "db":
			cfg.Store.DB = opts.db
		case "ua":
			cfg.HTTP.UserAgent = opts.userAgent
		case "cookies":
			cfg.HTTP.CookieFile = opts.cookieFile
		case "timeout":
			cfg.HTTP.Timeout = opts.timeout
		case "archive":
			cfg.HTTP.ArchiveDir = opts.archiveDir
		case "linkid":
			cfg.Crawl.LinkIdentity = opts.linkIdentity
		case "skipbad":
			cfg.Crawl.SkipMalformed = opts.skipMalformed
		}
	})
	if flag.NArg() > 0 {
		cfg.Crawl.Keyword = flag.Arg(0)
	}
}

func main() {
	flag.Parse()

	cfg, err := readConfig(opts.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	if cfg.Crawl.Keyword == "" {
		fmt.Fprintf(os.Stderr, "ERROR: no keyword\n")
		flag.Usage()
		os.Exit(1)
	}

	errLog := log.New(os.Stderr, "ERR: ", 0)
	infoLog := log.New(ioutil.Discard, "", 0)
	if opts.verbosity > 0 {
		infoLog = log.New(os.Stderr, "INF: ", 0)
	}

	res, err := harvest(cfg, errLog, infoLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
	infoLog.Printf("finished: %s at page %d (%d pages, %d new, %d total)\n",
		res.Reason, res.Page, res.Pages, res.Added, res.Total)
}

func openStore(cfg *Config, errLog *log.Logger) (*sqlstore.SQLStore, error) {
	connStr := cfg.Store.DB
	if connStr == "" && os.Getenv("HARVESTOMAT_DB") == "" {
		name, err := filenamify.Filenamify(cfg.Crawl.Keyword, filenamify.Options{})
		if err != nil {
			return nil, err
		}
		connStr = name + ".db"
	}
	db, err := sqlstore.NewWithEnv(cfg.Store.Driver, connStr)
	if err != nil {
		return nil, err
	}
	db.ErrLog = errLog
	if opts.verbosity > 1 {
		db.DebugLog = log.New(os.Stderr, "store: ", 0)
	}
	if cfg.Crawl.LinkIdentity {
		db.SetKeyFunc(store.KeyWithLink)
	}
	return db, nil
}

// lister returns a callback writing each record to out as a csv line.
func lister(out io.Writer, errLog store.Logger) func(store.Record) {
	w := csv.NewWriter(out)
	return func(rec store.Record) {
		w.Write([]string{rec.Publisher, rec.Link, rec.Title})
		w.Flush()
		if err := w.Error(); err != nil {
			errLog.Printf("list: %s\n", err)
		}
	}
}

func harvest(cfg *Config, errLog *log.Logger, infoLog *log.Logger) (*crawl.Result, error) {
	ext, err := extract.NewExtractor(cfg.layout())
	if err != nil {
		return nil, err
	}
	ext.SkipMalformed = cfg.Crawl.SkipMalformed
	ext.ErrLog = errLog

	fetcher, err := crawl.NewHTTPFetcher(cfg.HTTP.CookieFile, cfg.feedHost())
	if err != nil {
		return nil, err
	}
	fetcher.UserAgent = cfg.HTTP.UserAgent
	fetcher.ErrLog = errLog
	if cfg.HTTP.ArchiveDir != "" {
		fetcher.Archive = &arc.Archiver{Dir: cfg.HTTP.ArchiveDir}
	}

	db, err := openStore(cfg, errLog)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	crawlCfg := crawl.Config{
		Keyword:      cfg.Crawl.Keyword,
		Sort:         cfg.Crawl.Sort,
		StartPage:    cfg.Crawl.StartPage,
		Target:       cfg.Crawl.Target,
		MaxPage:      cfg.Crawl.MaxPage,
		URLTemplate:  cfg.Crawl.URLTemplate,
		FetchTimeout: time.Duration(cfg.HTTP.Timeout) * time.Second,
	}
	c, err := crawl.New(crawlCfg, db, fetcher, ext)
	if err != nil {
		db.Close()
		return nil, err
	}
	defer c.Close()
	c.ErrLog = errLog
	c.InfoLog = infoLog

	if opts.list {
		c.Found = lister(os.Stdout, errLog)
	}

	infoLog.Printf("harvesting %q (sort %s) from page %d, %d records already known\n",
		crawlCfg.Keyword, crawlCfg.Sort, crawlCfg.StartPage, c.Known())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.Run(ctx)
}
