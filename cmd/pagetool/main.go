package main

// pagetool checks saved search results pages against the listing layout,
// to help diagnose extraction problems without hitting the live site.

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/bcampbell/harvestomat/extract"
)

var opts struct {
	item     string
	endSel   string
	pageSize int
	baseURL  string
	verbose  bool
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "%s [OPTIONS] FILE(s)...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, `
Runs the listing extractor over saved html pages, reporting every
candidate element and whether a record could be built from it.
Use "-" to read from stdin.

`)
		flag.PrintDefaults()
	}

	flag.StringVar(&opts.item, "item", extract.NaverLayout.Item, "xpath to find candidate listings")
	flag.StringVar(&opts.endSel, "end", "", "css selector marking the last page")
	flag.IntVar(&opts.pageSize, "pagesize", extract.NaverLayout.PageSize, "number of listings on a full page")
	flag.StringVar(&opts.baseURL, "base", "https://search.naver.com/search.naver", "`url` to resolve relative links against")
	flag.BoolVar(&opts.verbose, "v", false, "show the text of rejected candidates")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: missing file(s)\n")
		flag.Usage()
		os.Exit(1)
	}

	layout := extract.NaverLayout
	layout.Item = opts.item
	layout.EndSel = opts.endSel
	layout.PageSize = opts.pageSize
	ext, err := extract.NewExtractor(layout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
	base, err := url.Parse(opts.baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: bad base url: %s\n", err)
		os.Exit(1)
	}

	for _, filename := range flag.Args() {
		err := inspect(ext, base, filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s: %s\n", filename, err)
			os.Exit(1)
		}
	}
}

func inspect(ext *extract.Extractor, base *url.URL, filename string) error {
	in := os.Stdin
	if filename != "-" {
		f, err := os.Open(filename)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	root, err := extract.Parse(in)
	if err != nil {
		return err
	}

	cands, err := ext.Candidates(root)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d candidates\n", filename, len(cands))

	good := 0
	for i, cand := range cands {
		ok, err := ext.Matches(cand)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("%3d  reject (wrong shape)\n", i)
			if opts.verbose {
				fmt.Printf("     %s\n", snippet(cand.Text()))
			}
			continue
		}
		rec, err := ext.Record(cand, base)
		if err != nil {
			fmt.Printf("%3d  reject (%s)\n", i, err)
			if opts.verbose {
				fmt.Printf("     %s\n", snippet(cand.Text()))
			}
			continue
		}
		good++
		fmt.Printf("%3d  %s | %s\n     %s\n", i, rec.Publisher, rec.Title, rec.Link)
	}

	// run the real thing, to show what the crawler would decide
	page, err := ext.Extract(root, base)
	if err != nil {
		fmt.Printf("%s: page would abort: %s\n", filename, err)
		return nil
	}
	fmt.Printf("%s: %d records, last page: %v\n", filename, good, page.Last)
	return nil
}

var spacePat = regexp.MustCompile(`\s+`)

// snippet squashes whitespace and trims s down to at most 100 characters,
// for printing on one line.
func snippet(s string) string {
	s = strings.TrimSpace(spacePat.ReplaceAllLiteralString(s, " "))
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100]) + "..."
	}
	return s
}
