package config

import "time"

// TracerConfig is the static description of the chains, the channel links between them
// and the denominations the tracer reports on.
type TracerConfig struct {
	Chains map[string]ChainEntry `toml:"chains"`
	// Paths maps a destination chain id to source chain id -> channel id on the destination side
	Paths        map[string]map[string]string `toml:"paths"`
	Denoms       []string                     `toml:"denoms"`
	DenomsSource string                       `toml:"denoms_source"`
	// Exponents are only used to render human readable amounts
	Exponents map[string]int32 `toml:"exponents"`
	Query     QueryConfig      `toml:"query"`
}

// ChainEntry is one configured network.
type ChainEntry struct {
	Name    string `toml:"name"`
	ChainID string `toml:"chain_id"`
	Prefix  string `toml:"prefix"`
	LCD     string `toml:"lcd"`
}

// QueryConfig tunes the LCD client and the run scheduling.
type QueryConfig struct {
	Timeout       Duration `toml:"timeout"`
	RetryAttempts int      `toml:"retry_attempts"`
	RetryDelay    Duration `toml:"retry_delay"`
	Parallelism   int      `toml:"parallelism"`
}

// Duration is a time.Duration read from a TOML string such as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

const (
	DefaultTimeout       = 10 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 500 * time.Millisecond
)

// applyDefaults fills in the optional query settings
func (c *TracerConfig) applyDefaults() {
	if c.Query.Timeout.Duration <= 0 {
		c.Query.Timeout.Duration = DefaultTimeout
	}
	if c.Query.RetryAttempts <= 0 {
		c.Query.RetryAttempts = DefaultRetryAttempts
	}
	if c.Query.RetryDelay.Duration <= 0 {
		c.Query.RetryDelay.Duration = DefaultRetryDelay
	}
	if c.Query.Parallelism <= 0 {
		c.Query.Parallelism = 1
	}
}

// ServerConfig configures the optional HTTP service mode.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests"`

	EnableMetrics bool `mapstructure:"enable_metrics"`

	// OpenTelemetry tracing
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `mapstructure:"enable_tracing"`
	OTLPTracesURL  string `mapstructure:"otlp_traces_url"`
	InsecureOTLP   bool   `mapstructure:"insecure_otlp"`

	// Development mode uses the stdout exporter
	DevelopmentMode bool `mapstructure:"development_mode"`
}
