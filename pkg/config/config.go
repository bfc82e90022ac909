package config

import "time"

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent          string           `yaml:"user_agent,omitempty"`
	NumWorkers         int              `yaml:"num_workers,omitempty"`
	MaxRequestsPerHost int              `yaml:"max_requests_per_host,omitempty"`
	DelayPerHost       time.Duration    `yaml:"delay_per_host,omitempty"`
	RawDir             string           `yaml:"raw_dir,omitempty"`
	ProcessedDir       string           `yaml:"processed_dir,omitempty"`
	ReportPath         string           `yaml:"report_path,omitempty"`
	FetchTimeout       time.Duration    `yaml:"fetch_timeout,omitempty"`
	ProbeTimeout       time.Duration    `yaml:"probe_timeout,omitempty"`
	ExtractTimeout     time.Duration    `yaml:"extract_timeout,omitempty"`
	MaxRetries         int              `yaml:"max_retries,omitempty"`
	InitialRetryDelay  time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay      time.Duration    `yaml:"max_retry_delay,omitempty"`
	RenderPages        bool             `yaml:"render_pages,omitempty"` // fetch pages via headless browser
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}
