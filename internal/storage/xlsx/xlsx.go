package xlsx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"hfr-topic-parser/internal/aggregate"
	"hfr-topic-parser/internal/scraper"
)

const (
	postsSheet = "Posts"
	dailySheet = "Daily"

	timestampLayout = "2006-01-02 15:04:05"
	dayLayout       = "2006-01-02"
)

// Repository writes crawl output to a spreadsheet: one row per post on the
// Posts sheet, plus a Daily sheet carrying the per-day counts and a line
// chart of the series. Posts go through a stream writer so a large topic
// does not hold the whole workbook in memory row objects.
type Repository struct {
	file   *excelize.File
	stream *excelize.StreamWriter
	path   string
	row    int
	logger *slog.Logger
}

func NewRepository(path string, logger *slog.Logger) (*Repository, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", postsSheet); err != nil {
		return nil, fmt.Errorf("failed to name posts sheet: %w", err)
	}

	stream, err := file.NewStreamWriter(postsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream writer: %w", err)
	}
	if err := stream.SetRow("A1", []interface{}{"author", "timestamp"}); err != nil {
		return nil, fmt.Errorf("failed to write posts header: %w", err)
	}

	return &Repository{
		file:   file,
		stream: stream,
		path:   path,
		row:    2,
		logger: logger,
	}, nil
}

func (r *Repository) SavePost(_ context.Context, post *scraper.Post) error {
	cell, err := excelize.CoordinatesToCellName(1, r.row)
	if err != nil {
		return err
	}
	err = r.stream.SetRow(cell, []interface{}{
		post.Author,
		post.Timestamp.Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("failed to write post row %d: %w", r.row, err)
	}
	r.row++
	return nil
}

func (r *Repository) SaveDailyCounts(_ context.Context, counts []aggregate.DayCount) error {
	// The posts stream must be flushed before regular sheet operations.
	if err := r.flushPosts(); err != nil {
		return err
	}

	if _, err := r.file.NewSheet(dailySheet); err != nil {
		return fmt.Errorf("failed to create daily sheet: %w", err)
	}
	if err := r.file.SetCellValue(dailySheet, "A1", "day"); err != nil {
		return err
	}
	if err := r.file.SetCellValue(dailySheet, "B1", "posts"); err != nil {
		return err
	}
	for i, dc := range counts {
		if err := r.file.SetCellValue(dailySheet, fmt.Sprintf("A%d", i+2), dc.Day.Format(dayLayout)); err != nil {
			return err
		}
		if err := r.file.SetCellValue(dailySheet, fmt.Sprintf("B%d", i+2), dc.Count); err != nil {
			return err
		}
	}

	if len(counts) == 0 {
		return nil
	}
	chart := &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", dailySheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", dailySheet, len(counts)+1),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", dailySheet, len(counts)+1),
		}},
		Title: []excelize.RichTextRun{{Text: "Posts per day"}},
	}
	if err := r.file.AddChart(dailySheet, "D2", chart); err != nil {
		return fmt.Errorf("failed to add daily chart: %w", err)
	}
	return nil
}

func (r *Repository) flushPosts() error {
	if r.stream == nil {
		return nil
	}
	if err := r.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush posts sheet: %w", err)
	}
	r.stream = nil
	return nil
}

// Close flushes pending rows and writes the workbook out.
func (r *Repository) Close() error {
	if err := r.flushPosts(); err != nil {
		return err
	}
	if err := r.file.SaveAs(r.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close workbook: %w", err)
	}
	r.logger.Info("workbook written", "path", r.path, "posts", r.row-2)
	return nil
}
