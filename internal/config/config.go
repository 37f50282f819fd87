package config

import (
	"fmt"
	"net/url"
	"time"
)

// Storage drivers understood by storage.Open.
const (
	DriverXLSX  = "xlsx"
	DriverMSSQL = "mssql"
)

type Config struct {
	Topic         TopicConfig         `yaml:"topic"`
	HTTP          HttpConfig          `yaml:"http"`
	Retry         RetryConfig         `yaml:"retry"`
	Crawl         CrawlConfig         `yaml:"crawl"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// TopicConfig identifies one forum topic. Cat/SubCat/Post map directly to
// the forum2.php query parameters.
type TopicConfig struct {
	BaseURL    string `yaml:"base_url"`
	ConfigName string `yaml:"config_name"`
	Cat        int    `yaml:"cat"`
	SubCat     int    `yaml:"subcat"`
	Post       int    `yaml:"post"`
}

type HttpConfig struct {
	UserAgent                 string `yaml:"user_agent"`
	ConnectTimeoutMS          int    `yaml:"connect_timeout_ms"`
	TotalTimeoutMS            int    `yaml:"total_timeout_ms"`
	MaxIdleConnections        int    `yaml:"max_idle_connections"`
	MaxIdleConnectionsPerHost int    `yaml:"max_idle_connections_per_host"`
	IdleConnectionTimeoutS    int    `yaml:"idle_connection_timeout_s"`
}

type RetryConfig struct {
	Attempts        int     `yaml:"attempts"`
	WaitTimeMS      int     `yaml:"wait_time_ms"`
	MaxWaitTimeMS   int     `yaml:"max_wait_time_ms"`
	Factor          float64 `yaml:"factor"`
	RetryStatusFrom int     `yaml:"retry_status_from"`
	RetryStatusTo   int     `yaml:"retry_status_to"`
}

type CrawlConfig struct {
	PagesPerBatch int `yaml:"pages_per_batch"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	Path             string `yaml:"path"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type ObservabilityConfig struct {
	LogPath       string `yaml:"log_path"`
	LogLevel      string `yaml:"log_level"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`
}

// DefaultConfig returns the configuration the binary runs with when no
// config file is given. The topic identifiers point at the HFR "COVID-19"
// topic the tool was written for.
func DefaultConfig() *Config {
	return &Config{
		Topic: TopicConfig{
			BaseURL:    "https://forum.hardware.fr/forum2.php",
			ConfigName: "hfr.inc",
			Cat:        13,
			SubCat:     422,
			Post:       118532,
		},
		HTTP: HttpConfig{
			UserAgent:                 "hfr-topic-parser/1.0.0",
			ConnectTimeoutMS:          3000,
			TotalTimeoutMS:            30000,
			MaxIdleConnections:        100,
			MaxIdleConnectionsPerHost: 100,
			IdleConnectionTimeoutS:    90,
		},
		Retry: RetryConfig{
			Attempts:        3,
			WaitTimeMS:      1000,
			MaxWaitTimeMS:   5000,
			Factor:          2.0,
			RetryStatusFrom: 400,
			RetryStatusTo:   599,
		},
		Crawl: CrawlConfig{
			PagesPerBatch: 100,
		},
		Storage: StorageConfig{
			Driver:           DriverXLSX,
			Path:             "./posts_parsed.xlsx",
			CommandTimeoutMS: 5000,
		},
		Observability: ObservabilityConfig{
			LogPath:       "./logs/hfr-topic.log",
			LogLevel:      "info",
			LogMaxSizeMB:  10,
			LogMaxBackups: 3,
			LogMaxAgeDays: 28,
		},
	}
}

// Validation
func (c *Config) Validate() error {
	if c.Topic.BaseURL == "" {
		return fmt.Errorf("topic.base_url is required")
	}
	if _, err := url.ParseRequestURI(c.Topic.BaseURL); err != nil {
		return fmt.Errorf("topic.base_url is not a valid URL: %w", err)
	}
	if c.Topic.ConfigName == "" {
		return fmt.Errorf("topic.config_name is required")
	}
	if c.Topic.Cat <= 0 {
		return fmt.Errorf("topic.cat must be a positive integer")
	}
	if c.Topic.SubCat <= 0 {
		return fmt.Errorf("topic.subcat must be a positive integer")
	}
	if c.Topic.Post <= 0 {
		return fmt.Errorf("topic.post must be a positive integer")
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("http.connect_timeout_ms must be > 0")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.Retry.Attempts <= 0 {
		return fmt.Errorf("retry.attempts must be > 0")
	}
	if c.Retry.WaitTimeMS <= 0 {
		return fmt.Errorf("retry.wait_time_ms must be > 0")
	}
	if c.Retry.MaxWaitTimeMS < c.Retry.WaitTimeMS {
		return fmt.Errorf("retry.max_wait_time_ms must be >= retry.wait_time_ms")
	}
	if c.Retry.Factor < 1 {
		return fmt.Errorf("retry.factor must be >= 1")
	}
	if c.Retry.RetryStatusFrom < 100 || c.Retry.RetryStatusTo > 599 || c.Retry.RetryStatusFrom > c.Retry.RetryStatusTo {
		return fmt.Errorf("retry.retry_status_from/retry_status_to must describe a valid HTTP status range")
	}
	if c.Crawl.PagesPerBatch <= 0 {
		return fmt.Errorf("crawl.pages_per_batch must be > 0")
	}
	if c.Storage.Driver != DriverXLSX && c.Storage.Driver != DriverMSSQL {
		return fmt.Errorf("storage.driver must be '%s' or '%s'", DriverXLSX, DriverMSSQL)
	}
	if c.Storage.Driver == DriverXLSX && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required when driver is '%s'", DriverXLSX)
	}
	if c.Storage.Driver == DriverMSSQL {
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when driver is '%s'", DriverMSSQL)
		}
		if c.Storage.CommandTimeoutMS <= 0 {
			return fmt.Errorf("storage.command_timeout_ms must be > 0")
		}
	}
	if c.Observability.LogPath == "" {
		return fmt.Errorf("observability.log_path is required")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	return nil
}

// Getters
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutMS) * time.Millisecond
}

func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetIdleConnectionTimeout() time.Duration {
	return time.Duration(c.HTTP.IdleConnectionTimeoutS) * time.Second
}

func (c *Config) GetRetryWaitTime() time.Duration {
	return time.Duration(c.Retry.WaitTimeMS) * time.Millisecond
}

func (c *Config) GetRetryMaxWaitTime() time.Duration {
	return time.Duration(c.Retry.MaxWaitTimeMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}
