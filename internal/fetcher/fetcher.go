package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"hfr-topic-parser/internal/config"
)

// Fetcher retrieves topic pages over HTTP, transparently retrying transient
// failures per the configured RetryPolicy. One Fetcher owns one connection
// pool shared by all concurrent fetches; Close must be called exactly once
// when the crawl is done.
type Fetcher struct {
	client *resty.Client
	cfg    *config.Config
	policy RetryPolicy
	logger *slog.Logger
}

// FetchError is a fetch that failed for good: either the retry budget was
// exhausted or the final response carried a non-2xx status.
type FetchError struct {
	Page   int
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch page %d: status %d", e.Page, e.Status)
	}
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	policy := PolicyFromConfig(cfg)

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.GetConnectTimeout(),
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.HTTP.MaxIdleConnections,
		MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnectionsPerHost,
		IdleConnTimeout:     cfg.GetIdleConnectionTimeout(),
	}

	f := &Fetcher{
		cfg:    cfg,
		policy: policy,
		logger: logger,
	}

	client := resty.New().
		SetTransport(transport).
		SetTimeout(cfg.GetTotalTimeout()).
		SetHeader("User-Agent", cfg.HTTP.UserAgent).
		SetRetryCount(policy.Attempts - 1).
		SetRetryWaitTime(policy.WaitTime).
		SetRetryMaxWaitTime(policy.MaxWaitTime).
		AddRetryCondition(policy.ShouldRetry).
		AddRetryHook(f.onRetry)
	client.SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
		return policy.Backoff(resp.Request.Attempt), nil
	})

	f.client = client
	return f
}

// FetchPage gets one topic page and returns its HTML body.
func (f *Fetcher) FetchPage(ctx context.Context, page int) (string, error) {
	if page <= 0 {
		return "", fmt.Errorf("page number must be a positive integer, got %d", page)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"config": f.cfg.Topic.ConfigName,
			"cat":    strconv.Itoa(f.cfg.Topic.Cat),
			"subcat": strconv.Itoa(f.cfg.Topic.SubCat),
			"post":   strconv.Itoa(f.cfg.Topic.Post),
			"page":   strconv.Itoa(page),
		}).
		Get(f.cfg.Topic.BaseURL)
	if err != nil {
		return "", &FetchError{Page: page, Err: err}
	}
	if !resp.IsSuccess() {
		return "", &FetchError{Page: page, Status: resp.StatusCode()}
	}

	f.logger.Debug("fetched page", "page", page, "bytes", len(resp.Body()))
	return resp.String(), nil
}

// onRetry logs the upcoming attempt: informational while the budget lasts,
// warning once the final attempt is reached.
func (f *Fetcher) onRetry(resp *resty.Response, _ error) {
	next := resp.Request.Attempt + 1
	if next > f.policy.Attempts {
		return
	}
	level := slog.LevelInfo
	if next == f.policy.Attempts {
		level = slog.LevelWarn
	}
	f.logger.Log(context.Background(), level, "retrying request",
		"method", resp.Request.Method,
		"url", resp.Request.URL,
		"attempt", next,
		"max_attempts", f.policy.Attempts,
	)
}

// Close releases the underlying connection pool.
func (f *Fetcher) Close() {
	f.client.GetClient().CloseIdleConnections()
	f.logger.Info("fetcher shut down")
}
