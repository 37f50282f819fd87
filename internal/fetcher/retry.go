package fetcher

import (
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"hfr-topic-parser/internal/config"
)

// RetryPolicy describes how transient fetch failures are recovered:
// attempt budget, exponential backoff schedule and the status range that
// counts as retryable. It carries no clock or transport, so the schedule
// can be tested in isolation.
type RetryPolicy struct {
	Attempts        int
	WaitTime        time.Duration
	MaxWaitTime     time.Duration
	Factor          float64
	RetryStatusFrom int
	RetryStatusTo   int
}

func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		Attempts:        cfg.Retry.Attempts,
		WaitTime:        cfg.GetRetryWaitTime(),
		MaxWaitTime:     cfg.GetRetryMaxWaitTime(),
		Factor:          cfg.Retry.Factor,
		RetryStatusFrom: cfg.Retry.RetryStatusFrom,
		RetryStatusTo:   cfg.Retry.RetryStatusTo,
	}
}

// Backoff returns the delay to wait after the given failed attempt
// (1-based): WaitTime * Factor^(attempt-1), capped at MaxWaitTime.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.WaitTime) * math.Pow(p.Factor, float64(attempt-1))
	if delay > float64(p.MaxWaitTime) {
		return p.MaxWaitTime
	}
	return time.Duration(delay)
}

func (p RetryPolicy) RetryableStatus(code int) bool {
	return code >= p.RetryStatusFrom && code <= p.RetryStatusTo
}

// ShouldRetry is the resty retry condition. Transport errors are retryable;
// context cancellation is handled by resty before conditions run. A received
// response is retried only when its status falls in the retryable range.
func (p RetryPolicy) ShouldRetry(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return p.RetryableStatus(resp.StatusCode())
}
