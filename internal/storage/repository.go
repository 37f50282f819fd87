package storage

import (
	"context"
	"fmt"
	"log/slog"

	"hfr-topic-parser/internal/aggregate"
	"hfr-topic-parser/internal/config"
	"hfr-topic-parser/internal/scraper"
	"hfr-topic-parser/internal/storage/mssql"
	"hfr-topic-parser/internal/storage/xlsx"
)

// Repository persists the crawl output: raw post records as they stream in,
// and the per-day aggregation once the crawl is done.
type Repository interface {
	// SavePost stores one post record.
	SavePost(ctx context.Context, post *scraper.Post) error

	// SaveDailyCounts stores the per-day post counts.
	SaveDailyCounts(ctx context.Context, counts []aggregate.DayCount) error

	Close() error
}

// Open builds the repository selected by storage.driver.
func Open(cfg *config.Config, logger *slog.Logger) (Repository, error) {
	switch cfg.Storage.Driver {
	case config.DriverXLSX:
		return xlsx.NewRepository(cfg.Storage.Path, logger)
	case config.DriverMSSQL:
		return mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Storage.Driver)
	}
}
