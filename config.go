package talim

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

// Config assembles every tunable of the client. Instances are meant to be
// configured once, passed to the Builder, and treated as immutable after
// Build.
type Config struct {
	API     APIConfig
	Session SessionConfig
	Routes  RoutesConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// APIConfig configures the backend gateway.
type APIConfig struct {
	// BaseURL is the absolute root of the backend API. Required.
	BaseURL string
	// Timeout applies when no HTTP client is supplied.
	Timeout time.Duration
	// Locale is sent as Accept-Language on every request when set.
	Locale string
}

// SessionConfig configures durable session persistence.
type SessionConfig struct {
	// StorageKey is the key the whole session is persisted under.
	StorageKey string
	// RedisPrefix namespaces keys when the Redis backend is used.
	RedisPrefix string
}

// RoutesConfig fixes the guard redirect destinations.
type RoutesConfig struct {
	LoginPath   string
	LandingPath string
}

// AuditConfig configures the audit event pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards the incoming event when the queue is full.
	// Unset, the pipeline evicts the oldest queued event instead, keeping
	// the freshest history.
	DropIfFull bool
}

// MetricsConfig configures in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			StorageKey:  "uzbek-talim-auth",
			RedisPrefix: "talim",
		},
		Routes: RoutesConfig{
			LoginPath:   "/login",
			LandingPath: "/dashboard",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations that cannot produce a working client.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API.BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("API.BaseURL must be an absolute URL")
	}
	if c.API.Timeout < 0 {
		return errors.New("API.Timeout must not be negative")
	}
	if c.Session.StorageKey == "" {
		return errors.New("Session.StorageKey is required")
	}
	if c.Routes.LoginPath == "" || c.Routes.LandingPath == "" {
		return errors.New("Routes paths are required")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types today; the clone guards against callers
	// mutating the struct they handed to the Builder.
	return cfg
}

func (c Config) httpClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	timeout := c.API.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
