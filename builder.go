package talim

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/uzbek-talim/talim/api"
	"github.com/uzbek-talim/talim/attempt"
	"github.com/uzbek-talim/talim/guard"
	"github.com/uzbek-talim/talim/session"
	"github.com/uzbek-talim/talim/storage"
)

// Builder assembles a Client. Configure it with the With methods and call
// Build once; a Builder is not reusable.
type Builder struct {
	config     Config
	httpClient *http.Client
	backend    storage.Backend
	redis      redis.UniversalClient
	storageDir string
	navigator  Navigator
	auditSink  AuditSink

	built bool
}

// New returns a Builder loaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the backend API root.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithHTTPClient supplies a custom HTTP client for the gateway.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithStorage supplies the durable storage backend directly. It wins over
// WithRedis and WithStorageDir.
func (b *Builder) WithStorage(backend storage.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis persists sessions and attempt records in Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStorageDir persists sessions and attempt records as files under dir.
func (b *Builder) WithStorageDir(dir string) *Builder {
	b.storageDir = dir
	return b
}

// WithNavigator supplies the redirect callback used on session expiry.
func (b *Builder) WithNavigator(nav Navigator) *Builder {
	b.navigator = nav
	return b
}

// WithAuditSink enables auditing into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.config.Audit.Enabled = true
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithLocale sets the Accept-Language value for every request.
func (b *Builder) WithLocale(locale string) *Builder {
	b.config.API.Locale = locale
	return b
}

// Build validates the configuration, loads the persisted session, and wires
// the gateway, guards, and attempt machinery together.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend := b.backend
	switch {
	case backend != nil:
	case b.redis != nil:
		backend = storage.NewRedis(b.redis, cfg.Session.RedisPrefix)
	case b.storageDir != "":
		fileBackend, err := storage.NewFile(b.storageDir)
		if err != nil {
			return nil, err
		}
		backend = fileBackend
	default:
		backend = storage.NewMemory()
	}

	client := &Client{
		config:   cfg,
		backend:  backend,
		navigate: b.navigator,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		audit:    newAuditPipeline(cfg.Audit, b.auditSink),
		metrics:  NewMetrics(cfg.Metrics),
		records:  attempt.NewRecordStore(backend),
		guards: &guard.Evaluator{
			LoginPath:   cfg.Routes.LoginPath,
			LandingPath: cfg.Routes.LandingPath,
		},
	}

	client.store = session.NewStore(context.Background(), backend, cfg.Session.StorageKey)

	gateway, err := api.NewGateway(api.GatewayConfig{
		BaseURL:        cfg.API.BaseURL,
		HTTPClient:     cfg.httpClient(b.httpClient),
		Tokens:         client.store,
		OnUnauthorized: client.sessionExpired,
		Observe:        client.observeRequest,
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	client.gateway = gateway

	b.built = true

	return client, nil
}
