package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hfr-topic-parser/internal/aggregate"
	"hfr-topic-parser/internal/config"
	"hfr-topic-parser/internal/crawler"
	"hfr-topic-parser/internal/fetcher"
	"hfr-topic-parser/internal/observability"
	"hfr-topic-parser/internal/storage"
)

// NewRootCmd creates the root command for hfr-topic.
func NewRootCmd() *cobra.Command {
	var (
		configPath string
		cat        int
		subCat     int
		post       int
		output     string
		driver     string
	)

	cmd := &cobra.Command{
		Use:   "hfr-topic",
		Short: "Crawl a hardware.fr forum topic and count posts per day",
		Long: `hfr-topic fetches every page of one forum topic, extracts the author and
Europe/Paris timestamp of every post, and stores the records together with
a per-day post count.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultConfig()
			if configPath != "" {
				loaded, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			flags := cmd.Flags()
			if flags.Changed("cat") {
				cfg.Topic.Cat = cat
			}
			if flags.Changed("subcat") {
				cfg.Topic.SubCat = subCat
			}
			if flags.Changed("post") {
				cfg.Topic.Post = post
			}
			if flags.Changed("output") {
				cfg.Storage.Path = output
			}
			if flags.Changed("driver") {
				cfg.Storage.Driver = driver
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation error: %w", err)
			}

			logger, closeLogger, err := observability.NewLogger(cfg.Observability)
			if err != nil {
				return err
			}
			defer closeLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().IntVar(&cat, "cat", 0, "Forum category identifier")
	cmd.Flags().IntVar(&subCat, "subcat", 0, "Forum sub-category identifier")
	cmd.Flags().IntVar(&post, "post", 0, "Forum topic identifier")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path for the xlsx driver")
	cmd.Flags().StringVar(&driver, "driver", "", "Storage driver (xlsx or mssql)")

	return cmd
}

// run wires the crawl pipeline: fetcher -> crawler -> repository. The
// fetcher and the repository are released exactly once on every exit path.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	f := fetcher.NewFetcher(cfg, logger)
	defer f.Close()

	c, err := crawler.New(cfg, f, logger)
	if err != nil {
		return err
	}

	repo, err := storage.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err.Error())
		}
	}()

	counts := aggregate.NewDailyCounts()
	for post, err := range c.Posts(ctx) {
		if err != nil {
			return err
		}
		if err := repo.SavePost(ctx, &post); err != nil {
			return err
		}
		counts.Add(post)
	}

	if err := repo.SaveDailyCounts(ctx, counts.Series()); err != nil {
		return err
	}

	logger.Info("crawl finished",
		"posts", counts.Total(),
		"days", len(counts.Series()),
	)
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
