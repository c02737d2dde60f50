package crawl

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"

	"github.com/bcampbell/arts/util"
	"github.com/bcampbell/biscuit"
	"github.com/bcampbell/harvestomat/arc"
	"github.com/bcampbell/harvestomat/store"
)

// Fetcher retrieves the raw markup of a page. Fetch should give up when
// ctx is done.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPFetcher fetches pages over HTTP.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	// Archive, if set, keeps a copy of every response
	Archive *arc.Archiver
	ErrLog  store.Logger
}

// NewHTTPFetcher returns a fetcher using a polite transport, so the server
// doesn't get hammered.
// If cookieFile is set, cookies are loaded from it (Netscape cookies.txt
// format) and sent to the host of cookieURL.
func NewHTTPFetcher(cookieFile string, cookieURL string) (*HTTPFetcher, error) {
	c := &http.Client{
		Transport: util.NewPoliteTripper(),
	}

	if cookieFile != "" {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(cookieFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		cookies, err := biscuit.ReadCookies(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cookieFile, err)
		}
		host, err := url.Parse(cookieURL)
		if err != nil {
			return nil, err
		}
		jar.SetCookies(host, cookies)
		c.Jar = jar
	}

	return &HTTPFetcher{Client: c, ErrLog: store.NullLogger()}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	fetchTime := time.Now()
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if f.Archive != nil {
		// a failed archive shouldn't stop the crawl
		if _, err := f.Archive.Archive(resp, pageURL, fetchTime); err != nil {
			f.ErrLog.Printf("archive failed on %s: %s\n", pageURL, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP code %d (%s)", resp.StatusCode, pageURL)
	}

	return io.ReadAll(resp.Body)
}
