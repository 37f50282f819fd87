package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"hfr-topic-parser/internal/config"
	"hfr-topic-parser/internal/fetcher"
	"hfr-topic-parser/internal/scraper"
)

const postsPerPage = 2

func pageHTML(page, maxPage int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="fondForum2PagesHaut">`)
	fmt.Fprintf(&b, `<a class="cHeader">1</a><a class="cHeader">%d</a><a class="cHeader">Suivante</a>`, maxPage)
	b.WriteString(`</div>`)
	for i := 1; i <= postsPerPage; i++ {
		fmt.Fprintf(&b,
			`<table class="messagetable"><tr>`+
				`<td class="messCase1"><b class="s2">p%d-m%d</b></td>`+
				`<td class="messCase2"><div class="toolbar"><div class="left">Posté le %02d-03-2020&nbsp;à&nbsp;12:00:%02d</div></div></td>`+
				`</tr></table>`,
			page, i, page, i)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// pageRecorder tracks which pages the fake forum served.
type pageRecorder struct {
	mu    sync.Mutex
	pages []int
}

func (r *pageRecorder) add(page int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, page)
}

func (r *pageRecorder) saw(page int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pages {
		if p == page {
			return true
		}
	}
	return false
}

func topicServer(t *testing.T, maxPage int, failPage int, rec *pageRecorder) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 || page > maxPage {
			t.Errorf("fake forum got bad page parameter %q", r.URL.Query().Get("page"))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rec.add(page)
		if page == failPage {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, pageHTML(page, maxPage))
	}))
}

func testCrawler(t *testing.T, baseURL string) *Crawler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Topic.BaseURL = baseURL
	cfg.Crawl.PagesPerBatch = 2
	cfg.Retry.Attempts = 1
	cfg.Retry.WaitTimeMS = 1
	cfg.Retry.MaxWaitTimeMS = 2

	logger := slog.New(slog.DiscardHandler)
	f := fetcher.NewFetcher(cfg, logger)
	t.Cleanup(f.Close)

	c, err := New(cfg, f, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewRejectsInvalidTopic(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero cat", func(c *config.Config) { c.Topic.Cat = 0 }},
		{"negative subcat", func(c *config.Config) { c.Topic.SubCat = -7 }},
		{"zero post", func(c *config.Config) { c.Topic.Post = 0 }},
		{"zero batch", func(c *config.Config) { c.Crawl.PagesPerBatch = 0 }},
	}

	logger := slog.New(slog.DiscardHandler)
	for _, tt := range tests {
		cfg := config.DefaultConfig()
		tt.mutate(cfg)
		if _, err := New(cfg, nil, logger); err == nil {
			t.Errorf("%s: New() should fail", tt.name)
		}
	}
}

func TestTotalPageCount(t *testing.T) {
	rec := &pageRecorder{}
	srv := topicServer(t, 5, 0, rec)
	defer srv.Close()

	c := testCrawler(t, srv.URL)
	maxPage, err := c.TotalPageCount(context.Background())
	if err != nil {
		t.Fatalf("TotalPageCount() error = %v", err)
	}
	if maxPage != 5 {
		t.Errorf("TotalPageCount() = %d, want 5", maxPage)
	}
}

func TestPostsOrderedStream(t *testing.T) {
	rec := &pageRecorder{}
	srv := topicServer(t, 5, 0, rec)
	defer srv.Close()

	c := testCrawler(t, srv.URL)

	var authors []string
	for post, err := range c.Posts(context.Background()) {
		if err != nil {
			t.Fatalf("Posts() yielded error: %v", err)
		}
		authors = append(authors, post.Author)
	}

	var want []string
	for page := 1; page <= 5; page++ {
		for i := 1; i <= postsPerPage; i++ {
			want = append(want, fmt.Sprintf("p%d-m%d", page, i))
		}
	}
	if len(authors) != len(want) {
		t.Fatalf("got %d posts, want %d", len(authors), len(want))
	}
	for i := range want {
		if authors[i] != want[i] {
			t.Fatalf("post %d author = %q, want %q (page order must be preserved)", i, authors[i], want[i])
		}
	}
}

func TestPostsFailureStopsAtBatchBoundary(t *testing.T) {
	rec := &pageRecorder{}
	srv := topicServer(t, 5, 3, rec)
	defer srv.Close()

	c := testCrawler(t, srv.URL)

	var posts []scraper.Post
	var streamErr error
	for post, err := range c.Posts(context.Background()) {
		if err != nil {
			streamErr = err
			break
		}
		posts = append(posts, post)
	}

	if streamErr == nil {
		t.Fatal("Posts() should terminate with an error when a page fails permanently")
	}
	// Batches are {1,2}, {3,4}, {5}: the failure in batch two means exactly
	// the records of batch one come through and batch three never starts.
	if len(posts) != 2*postsPerPage {
		t.Errorf("got %d posts before the error, want %d (pages 1-2 only)", len(posts), 2*postsPerPage)
	}
	for i, post := range posts {
		wantPage := i/postsPerPage + 1
		if !strings.HasPrefix(post.Author, fmt.Sprintf("p%d-", wantPage)) {
			t.Errorf("post %d author = %q, want page %d author", i, post.Author, wantPage)
		}
	}
	if rec.saw(5) {
		t.Error("page 5 was fetched even though the previous batch failed")
	}
}

func TestPostsConsumerCanStopEarly(t *testing.T) {
	rec := &pageRecorder{}
	srv := topicServer(t, 6, 0, rec)
	defer srv.Close()

	c := testCrawler(t, srv.URL)

	count := 0
	for _, err := range c.Posts(context.Background()) {
		if err != nil {
			t.Fatalf("Posts() yielded error: %v", err)
		}
		count++
		if count == 1 {
			break
		}
	}

	// Only discovery plus the first batch may have run.
	for page := 3; page <= 6; page++ {
		if rec.saw(page) {
			t.Errorf("page %d was fetched after the consumer abandoned the stream", page)
		}
	}
}

func TestPostsDiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body><p>template changed</p></body></html>")
	}))
	defer srv.Close()

	c := testCrawler(t, srv.URL)

	for _, err := range c.Posts(context.Background()) {
		if err == nil {
			t.Fatal("Posts() yielded a record from an unparsable topic")
		}
		return
	}
	t.Fatal("Posts() yielded nothing, want a terminating error")
}
