package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"hfr-topic-parser/internal/aggregate"
	"hfr-topic-parser/internal/scraper"
)

// Repository stores posts and daily counts in MS SQL. Expects the
// TblTopicPosts and TblTopicDailyCounts tables to exist.
type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *slog.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}, nil
}

// SavePost upserts one post, keyed on author plus timestamp. Re-running a
// crawl over the same topic therefore does not duplicate rows.
func (r *Repository) SavePost(ctx context.Context, post *scraper.Post) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		MERGE INTO TblTopicPosts AS target
		USING (SELECT @Author AS Author, @PostedAt AS PostedAt) AS source
		ON target.[Author] = source.Author AND target.[PostedAt] = source.PostedAt
		WHEN NOT MATCHED THEN
			INSERT ([Author], [PostedAt])
			VALUES (@Author, @PostedAt);
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("failed to close statement", "error", err.Error())
		}
	}()

	_, err = stmt.ExecContext(ctx,
		sql.Named("Author", post.Author),
		sql.Named("PostedAt", post.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}

	return nil
}

// SaveDailyCounts upserts the per-day aggregation, one row per day.
func (r *Repository) SaveDailyCounts(ctx context.Context, counts []aggregate.DayCount) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		MERGE INTO TblTopicDailyCounts AS target
		USING (SELECT @Day AS Day) AS source
		ON target.[Day] = source.Day
		WHEN MATCHED THEN
			UPDATE SET [PostCount] = @PostCount
		WHEN NOT MATCHED THEN
			INSERT ([Day], [PostCount])
			VALUES (@Day, @PostCount);
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("failed to close statement", "error", err.Error())
		}
	}()

	for _, dc := range counts {
		_, err = stmt.ExecContext(ctx,
			sql.Named("Day", dc.Day),
			sql.Named("PostCount", dc.Count),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert daily count for %s: %w", dc.Day.Format("2006-01-02"), err)
		}
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
