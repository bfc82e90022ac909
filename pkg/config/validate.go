package config

import (
	"fmt"
	"time"
)

// Default values applied by Validate when fields are unset
const (
	DefaultUserAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.199 Safari/537.36"
	DefaultNumWorkers         = 4
	DefaultMaxRequestsPerHost = 2
	DefaultRawDir             = "./raw_downloads"
	DefaultProcessedDir       = "./processed_data"
	DefaultReportPath         = "./results_registry.csv"
	DefaultFetchTimeout       = 60 * time.Second
	DefaultProbeTimeout       = 10 * time.Second
	DefaultExtractTimeout     = 60 * time.Second
	DefaultMaxRetries         = 3
	DefaultInitialRetryDelay  = 1 * time.Second
	DefaultMaxRetryDelay      = 30 * time.Second
	DefaultDelayPerHost       = 500 * time.Millisecond
)

// Validate applies defaults for unset fields and returns human-readable
// warnings describing every substitution. The returned error is currently
// always nil; the signature leaves room for hard validation failures.
func (cfg *AppConfig) Validate() ([]string, error) {
	var warnings []string

	if cfg.UserAgent == "" {
		warnings = append(warnings, "user_agent is empty, using built-in default")
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.NumWorkers <= 0 {
		warnings = append(warnings, fmt.Sprintf("num_workers should be > 0, defaulting to %d", DefaultNumWorkers))
		cfg.NumWorkers = DefaultNumWorkers
	}
	if cfg.MaxRequestsPerHost <= 0 {
		warnings = append(warnings, fmt.Sprintf("max_requests_per_host should be > 0, defaulting to %d", DefaultMaxRequestsPerHost))
		cfg.MaxRequestsPerHost = DefaultMaxRequestsPerHost
	}
	if cfg.DelayPerHost < 0 {
		warnings = append(warnings, "delay_per_host is negative, defaulting")
		cfg.DelayPerHost = DefaultDelayPerHost
	} else if cfg.DelayPerHost == 0 {
		cfg.DelayPerHost = DefaultDelayPerHost
	}
	if cfg.RawDir == "" {
		warnings = append(warnings, fmt.Sprintf("raw_dir is empty, defaulting to %s", DefaultRawDir))
		cfg.RawDir = DefaultRawDir
	}
	if cfg.ProcessedDir == "" {
		warnings = append(warnings, fmt.Sprintf("processed_dir is empty, defaulting to %s", DefaultProcessedDir))
		cfg.ProcessedDir = DefaultProcessedDir
	}
	if cfg.ReportPath == "" {
		cfg.ReportPath = DefaultReportPath
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = DefaultExtractTimeout
	}
	if cfg.MaxRetries < 0 {
		warnings = append(warnings, "max_retries is negative, defaulting")
		cfg.MaxRetries = DefaultMaxRetries
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialRetryDelay <= 0 {
		cfg.InitialRetryDelay = DefaultInitialRetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = DefaultMaxRetryDelay
	}

	cfg.HTTPClientSettings.applyDefaults()

	return warnings, nil
}

// applyDefaults fills unset HTTP client settings with conservative defaults
func (c *HTTPClientConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 2
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	if c.TLSHandshakeTimeout <= 0 {
		c.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.ExpectContinueTimeout <= 0 {
		c.ExpectContinueTimeout = 1 * time.Second
	}
	if c.DialerTimeout <= 0 {
		c.DialerTimeout = 15 * time.Second
	}
	if c.DialerKeepAlive <= 0 {
		c.DialerKeepAlive = 30 * time.Second
	}
}
