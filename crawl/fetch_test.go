package crawl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcampbell/harvestomat/arc"
)

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>ua=" + r.Header.Get("User-Agent") + "</body></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestHTTPFetch(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	f := &HTTPFetcher{Client: ts.Client(), UserAgent: "harvestomat-test"}
	body, err := f.Fetch(context.Background(), ts.URL+"/search?query=test")
	if err != nil {
		t.Fatalf("Fetch failed: %s", err)
	}
	if !strings.Contains(string(body), "ua=harvestomat-test") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestHTTPFetchBadStatus(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	f := &HTTPFetcher{Client: ts.Client()}
	_, err := f.Fetch(context.Background(), ts.URL+"/missing")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected HTTP 404 error, got %v", err)
	}
}

func TestHTTPFetchArchives(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	dir := t.TempDir()
	archiver := &arc.Archiver{Dir: dir}
	f := &HTTPFetcher{Client: ts.Client(), Archive: archiver}
	u := ts.URL + "/search?query=test&start=1"
	if _, err := f.Fetch(context.Background(), u); err != nil {
		t.Fatalf("Fetch failed: %s", err)
	}

	filename, err := archiver.Filename(u)
	if err != nil {
		t.Fatalf("Filename failed: %s", err)
	}
	if !strings.HasPrefix(filename, dir) {
		t.Fatalf("archive outside %s: %s", dir, filename)
	}
	if _, err := os.Stat(filepath.Clean(filename)); err != nil {
		t.Errorf("archive not written: %s", err)
	}
}

func TestNewHTTPFetcherCookies(t *testing.T) {
	cookieFile := filepath.Join(t.TempDir(), "cookies.txt")
	// Netscape cookies.txt format, tab separated
	txt := "# Netscape HTTP Cookie File\n" +
		".example.com\tTRUE\t/\tFALSE\t2147483647\tconsent\tyes\n"
	if err := os.WriteFile(cookieFile, []byte(txt), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := NewHTTPFetcher(cookieFile, "https://www.example.com/")
	if err != nil {
		t.Fatalf("NewHTTPFetcher failed: %s", err)
	}
	if f.Client.Jar == nil {
		t.Errorf("cookie jar not set up")
	}

	if _, err := NewHTTPFetcher(filepath.Join(t.TempDir(), "nope.txt"), "https://www.example.com/"); err == nil {
		t.Errorf("missing cookie file accepted")
	}
}
