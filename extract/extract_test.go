package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/bcampbell/harvestomat/store"
)

// listing renders one search result in the shape of a Naver news item.
func listing(publisher, link, title string) string {
	return `<li class="bx">
  <div class="news_wrap">
    <div class="news_area">
      <div class="news_info">
        <div class="info_group_l"></div>
        <div class="info_group">
          <a class="info press" href="https://press.example.com/"><span class="thumb_box"><img src="logo.png"></span>` + publisher + `</a>
          <a class="info" href="` + link + `">Naver News</a>
        </div>
      </div>
      <a class="news_tit" href="https://press.example.com/article" title="` + title + `">` + title + `</a>
    </div>
  </div>
</li>`
}

// advert is a result box without the Naver News link.
const advert = `<li class="bx">
  <div class="news_wrap">
    <div class="news_area">
      <div class="news_info">
        <div class="info_group_l"></div>
        <div class="info_group">
          <a class="info press" href="https://press.example.com/"><span class="thumb_box"></span>Sponsor</a>
        </div>
      </div>
      <a class="news_tit" href="https://press.example.com/ad" title="Buy things">Buy things</a>
    </div>
  </div>
</li>`

func page(items ...string) string {
	return `<html><body><ul class="list_news">` + strings.Join(items, "\n") + `</ul></body></html>`
}

func fullPage(n int) string {
	items := []string{}
	for i := 0; i < n; i++ {
		items = append(items, listing(
			fmt.Sprintf("Press %d", i),
			fmt.Sprintf("https://n.news.naver.com/mnews/article/001/%010d", i),
			fmt.Sprintf("Headline number %d", i)))
	}
	return page(items...)
}

func extract(t *testing.T, ext *Extractor, doc string) (*Page, error) {
	root, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	base, _ := url.Parse("https://search.naver.com/search.naver?where=news")
	return ext.Extract(root, base)
}

func newExtractor(t *testing.T, layout Layout) *Extractor {
	ext, err := NewExtractor(layout)
	if err != nil {
		t.Fatalf("NewExtractor failed: %s", err)
	}
	return ext
}

func TestExtractFields(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	doc := page(listing("  Yonhap\n ", "https://n.news.naver.com/mnews/article/001/0014000001?sid=100", "  Moon made of cheese  "))

	got, err := extract(t, ext, doc)
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	expect := store.Record{
		Publisher: "Yonhap",
		Link:      "https://n.news.naver.com/mnews/article/001/0014000001?sid=100",
		Title:     "Moon made of cheese",
	}
	if len(got.Records) != 1 {
		t.Fatalf("wrong record count (got %d, expected 1)", len(got.Records))
	}
	if got.Records[0] != expect {
		t.Errorf("got %+v, expected %+v", got.Records[0], expect)
	}
}

func TestLastPageDetection(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	data := []struct {
		n    int
		last bool
	}{
		{0, true},
		{2, true},
		{9, true},
		{10, false},
	}
	for _, dat := range data {
		got, err := extract(t, ext, fullPage(dat.n))
		if err != nil {
			t.Fatalf("%d items: Extract failed: %s", dat.n, err)
		}
		if got.Last != dat.last {
			t.Errorf("%d items: Last=%v, expected %v", dat.n, got.Last, dat.last)
		}
		if len(got.Records) != dat.n {
			t.Errorf("%d items: got %d records", dat.n, len(got.Records))
		}
	}
}

func TestLastPageCountsRawCandidates(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	// ten candidates, but only seven are real listings
	items := []string{}
	for i := 0; i < 7; i++ {
		items = append(items, listing("P", fmt.Sprintf("https://n.news.naver.com/%d", i), fmt.Sprintf("Story %d", i)))
	}
	items = append(items, advert, advert, advert)

	got, err := extract(t, ext, page(items...))
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	if got.Candidates != 10 || len(got.Records) != 7 {
		t.Fatalf("wrong counts (candidates %d, records %d)", got.Candidates, len(got.Records))
	}
	if got.Last {
		t.Errorf("page of 10 candidates flagged as last")
	}
}

func TestShapeFilter(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	doc := page(
		listing("A", "https://n.news.naver.com/1", "First"),
		advert,
		listing("B", "https://n.news.naver.com/2", "Second"),
	)
	got, err := extract(t, ext, doc)
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	if got.Candidates != 3 || got.Rejected != 1 {
		t.Errorf("wrong counts (candidates %d, rejected %d)", got.Candidates, got.Rejected)
	}
	if len(got.Records) != 2 {
		t.Fatalf("wrong record count (got %d, expected 2)", len(got.Records))
	}
	// order is preserved
	if got.Records[0].Title != "First" || got.Records[1].Title != "Second" {
		t.Errorf("records out of order: %v", got.Records)
	}
}

func TestLinkUsesLastAnchor(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	got, err := extract(t, ext, page(listing("A", "https://n.news.naver.com/real", "T")))
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	if got.Records[0].Link != "https://n.news.naver.com/real" {
		t.Errorf("picked wrong link: %s", got.Records[0].Link)
	}
}

func TestRelativeLinkResolved(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	got, err := extract(t, ext, page(listing("A", "/mnews/article/001/1", "T")))
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	if got.Records[0].Link != "https://search.naver.com/mnews/article/001/1" {
		t.Errorf("relative link not resolved: %s", got.Records[0].Link)
	}
}

func TestOddLinksKeptAsServed(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	odd := []string{
		"https://n.news.naver.com/a%zz",
		"HTTPS://N.News.Naver.com:443/mnews/article/001/1?",
	}
	doc := page(
		listing("A", "https://n.news.naver.com/1", "First"),
		listing("B", odd[0], "Second"),
		listing("C", odd[1], "Third"),
	)
	got, err := extract(t, ext, doc)
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	if len(got.Records) != 3 {
		t.Fatalf("wrong record count (got %d, expected 3)", len(got.Records))
	}
	for i, link := range odd {
		if got.Records[i+1].Link != link {
			t.Errorf("link changed: got %q, expected %q", got.Records[i+1].Link, link)
		}
	}
}

func TestNormalizeLinks(t *testing.T) {
	layout := NaverLayout
	layout.NormalizeLinks = true
	ext := newExtractor(t, layout)
	got, err := extract(t, ext, page(listing("A", "HTTPS://N.News.Naver.com:443/mnews/article/001/1", "T")))
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	if got.Records[0].Link != "https://n.news.naver.com/mnews/article/001/1" {
		t.Errorf("link not normalised: %s", got.Records[0].Link)
	}
}

// a listing without a title attribute
var untitled = strings.Replace(listing("C", "https://n.news.naver.com/3", "Broken"), `title="Broken"`, "", 1)

func TestMissingFieldAbortsPage(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	doc := page(
		listing("A", "https://n.news.naver.com/1", "First"),
		untitled,
		listing("B", "https://n.news.naver.com/2", "Second"),
	)
	_, err := extract(t, ext, doc)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %s", err)
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "title" {
		t.Errorf("expected title FieldError, got %v", err)
	}
}

func TestMissingFieldSkipped(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	ext.SkipMalformed = true
	doc := page(
		listing("A", "https://n.news.naver.com/1", "First"),
		untitled,
		listing("B", "https://n.news.naver.com/2", "Second"),
	)
	got, err := extract(t, ext, doc)
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	if len(got.Records) != 2 || got.Rejected != 1 {
		t.Fatalf("expected 2 records and 1 reject, got %d and %d", len(got.Records), got.Rejected)
	}
	// no misalignment: each record keeps its own fields
	if got.Records[1].Publisher != "B" || got.Records[1].Title != "Second" {
		t.Errorf("fields misaligned: %+v", got.Records[1])
	}
}

func TestMissingPublisherText(t *testing.T) {
	ext := newExtractor(t, NaverLayout)
	// nothing after the span
	doc := page(strings.Replace(listing("", "https://n.news.naver.com/1", "T"), "</span></a>", "</span><em>x</em></a>", 1))
	_, err := extract(t, ext, doc)
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "publisher" {
		t.Errorf("expected publisher FieldError, got %v", err)
	}
}

func TestEndSel(t *testing.T) {
	layout := NaverLayout
	layout.EndSel = ".not_found02"
	ext := newExtractor(t, layout)

	doc := strings.Replace(fullPage(10), "</ul>", `</ul><div class="not_found02">no more results</div>`, 1)
	got, err := extract(t, ext, doc)
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	if !got.Last {
		t.Errorf("end marker ignored")
	}

	got, err = extract(t, ext, fullPage(10))
	if err != nil {
		t.Fatalf("Extract failed: %s", err)
	}
	if got.Last {
		t.Errorf("full page without end marker flagged as last")
	}
}

func TestNewExtractorBadLayout(t *testing.T) {
	bad := []Layout{}

	l := NaverLayout
	l.Item = "//*[@class="
	bad = append(bad, l)

	l = NaverLayout
	l.Title = ""
	bad = append(bad, l)

	l = NaverLayout
	l.EndSel = "div[["
	bad = append(bad, l)

	l = NaverLayout
	l.PageSize = 0
	bad = append(bad, l)

	for i, layout := range bad {
		if _, err := NewExtractor(layout); err == nil {
			t.Errorf("bad layout %d accepted", i)
		}
	}
}
