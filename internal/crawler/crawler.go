package crawler

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"hfr-topic-parser/internal/config"
	"hfr-topic-parser/internal/fetcher"
	"hfr-topic-parser/internal/scraper"
)

// Crawler turns a whole topic into an ordered stream of posts. Pages are
// fetched in batches of cfg.Crawl.PagesPerBatch: every page of a batch is
// fetched concurrently, the batch barrier waits for all of them, then the
// pages are parsed and their posts yielded in page-number order. Batches run
// strictly one after another, which bounds in-flight requests to the batch
// size.
type Crawler struct {
	cfg     *config.Config
	fetcher *fetcher.Fetcher
	logger  *slog.Logger
}

func New(cfg *config.Config, f *fetcher.Fetcher, logger *slog.Logger) (*Crawler, error) {
	if cfg.Topic.Cat <= 0 {
		return nil, fmt.Errorf("cat must be a positive integer, got %d", cfg.Topic.Cat)
	}
	if cfg.Topic.SubCat <= 0 {
		return nil, fmt.Errorf("subcat must be a positive integer, got %d", cfg.Topic.SubCat)
	}
	if cfg.Topic.Post <= 0 {
		return nil, fmt.Errorf("post must be a positive integer, got %d", cfg.Topic.Post)
	}
	if cfg.Crawl.PagesPerBatch <= 0 {
		return nil, fmt.Errorf("pages per batch must be a positive integer, got %d", cfg.Crawl.PagesPerBatch)
	}

	logger.Info("crawler initialized",
		"cat", cfg.Topic.Cat,
		"subcat", cfg.Topic.SubCat,
		"post", cfg.Topic.Post,
	)

	return &Crawler{cfg: cfg, fetcher: f, logger: logger}, nil
}

// TotalPageCount fetches the first page and reads the topic's page count
// from its pagination header.
func (c *Crawler) TotalPageCount(ctx context.Context) (int, error) {
	content, err := c.fetcher.FetchPage(ctx, 1)
	if err != nil {
		return 0, err
	}
	maxPage, err := scraper.MaxPageNumber(content)
	if err != nil {
		return 0, err
	}
	c.logger.Info("topic size discovered", "pages", maxPage)
	return maxPage, nil
}

// Posts returns the topic's posts as a lazy ordered sequence. The sequence
// ends early with a non-nil error if any fetch or extraction fails; records
// already yielded stay valid, and nothing past the failing batch is emitted.
func (c *Crawler) Posts(ctx context.Context) iter.Seq2[scraper.Post, error] {
	return func(yield func(scraper.Post, error) bool) {
		maxPage, err := c.TotalPageCount(ctx)
		if err != nil {
			yield(scraper.Post{}, err)
			return
		}

		batchSize := c.cfg.Crawl.PagesPerBatch
		for start := 1; start <= maxPage; start += batchSize {
			end := min(start+batchSize-1, maxPage)

			contents := make([]string, end-start+1)
			g, gctx := errgroup.WithContext(ctx)
			for page := start; page <= end; page++ {
				g.Go(func() error {
					content, err := c.fetcher.FetchPage(gctx, page)
					if err != nil {
						return err
					}
					contents[page-start] = content
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				yield(scraper.Post{}, err)
				return
			}

			for page := start; page <= end; page++ {
				posts, err := scraper.ParsePage(contents[page-start])
				if err != nil {
					yield(scraper.Post{}, fmt.Errorf("page %d: %w", page, err))
					return
				}
				c.logger.Info("parsed page", "page", page, "posts", len(posts))
				for _, post := range posts {
					if !yield(post, nil) {
						return
					}
				}
			}
		}
	}
}
