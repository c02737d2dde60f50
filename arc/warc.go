package arc

// helpers to keep copies of fetched pages in noddy .warc files

import (
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bcampbell/warc"
)

// eg "abcdefg.foo" returns "a/ab/abc"
func spreadPath(name string) string {
	numChunks := 3 // how many subdirs to use
	chunkSize := 1 // num chars per subdir

	if len(name) < numChunks*chunkSize {
		panic("name too short")
	}

	parts := make([]string, numChunks)
	for chunk := 0; chunk < numChunks; chunk++ {
		parts[chunk] = name[0 : (chunk+1)*chunkSize]
	}
	return filepath.Join(parts...)
}

// Archiver writes HTTP responses out under Dir, one gzipped .warc file
// per URL. Fetching the same URL again overwrites the earlier copy.
type Archiver struct {
	Dir string
}

// Filename returns where the response for srcURL will be stored, eg:
// .../search.naver.com/1/12/123/12345678.warc.gz
func (a *Archiver) Filename(srcURL string) (string, error) {
	u, err := url.Parse(srcURL)
	if err != nil {
		return "", err
	}
	sum := md5.Sum([]byte(srcURL))
	name := hex.EncodeToString(sum[:]) + ".warc.gz"
	return filepath.Join(a.Dir, u.Host, spreadPath(name), name), nil
}

// Archive writes out resp, which was fetched from srcURL at timeStamp.
// Returns the filename written.
func (a *Archiver) Archive(resp *http.Response, srcURL string, timeStamp time.Time) (string, error) {
	filename, err := a.Filename(srcURL)
	if err != nil {
		return "", err
	}
	err = os.MkdirAll(filepath.Dir(filename), 0777) // let umask cull the perms down...
	if err != nil {
		return "", err
	}

	outfile, err := os.Create(filename)
	if err != nil {
		return "", err
	}
	defer outfile.Close()

	gzw := gzip.NewWriter(outfile)
	err = warc.Write(gzw, resp, srcURL, timeStamp)
	if err != nil {
		gzw.Close()
		return "", err
	}
	return filename, gzw.Close()
}
