package talim

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/uzbek-talim/talim/api"
	"github.com/uzbek-talim/talim/attempt"
	"github.com/uzbek-talim/talim/guard"
	"github.com/uzbek-talim/talim/session"
	"github.com/uzbek-talim/talim/storage"
)

// Navigator performs a client-side redirect. The expired-session teardown
// and guard consumers use it; a nil navigator makes redirects no-ops.
type Navigator func(path string)

// Client is the façade over the whole platform client: the session store,
// the API gateway, route guards, and the test attempt machinery. Build one
// with the Builder and share it; all methods are safe for concurrent use.
type Client struct {
	config   Config
	store    *session.Store
	gateway  *api.Gateway
	guards   *guard.Evaluator
	records  *attempt.RecordStore
	backend  storage.Backend
	navigate Navigator
	audit    *auditPipeline
	metrics  *Metrics
	validate *validator.Validate

	bootstrapOnce sync.Once
	bootstrapErr  error
}

// Close flushes and stops background machinery. The session snapshot stays
// in durable storage; a later client picks it up.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

// Session exposes the session store for snapshot reads and watchers.
func (c *Client) Session() *session.Store {
	return c.store
}

// Guards exposes the route guard evaluator.
func (c *Client) Guards() *guard.Evaluator {
	return c.guards
}

// MetricsSnapshot copies the current counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// AuditDropped reports audit events discarded under backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

// sessionExpired is the gateway's 401 hook: tear the session down and send
// the user to login. Logout is idempotent, so overlapping 401s from
// concurrent requests cannot double-clear.
func (c *Client) sessionExpired(ctx context.Context) {
	c.store.Logout(ctx)
	c.metricInc(MetricSessionExpired)
	c.emitAudit(ctx, auditEventSessionExpired, false, "", ErrSessionExpired, nil)
	if c.navigate != nil {
		c.navigate(c.config.Routes.LoginPath)
	}
}

// observeRequest is the gateway's per-request sample hook.
func (c *Client) observeRequest(_, _ string, status int, elapsed time.Duration) {
	if status == 0 || status >= 400 {
		c.metricInc(MetricRequestFailure)
	}
	if c.metrics != nil && c.metrics.LatencyEnabled() {
		c.metrics.Observe(MetricRequestLatency, elapsed)
	}
}

func (c *Client) validateStruct(v any) error {
	if c.validate == nil {
		return nil
	}
	if err := c.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// requestContext applies the configured locale to outgoing requests.
func (c *Client) requestContext(ctx context.Context) context.Context {
	if c.config.API.Locale != "" {
		return api.WithLocale(ctx, c.config.API.Locale)
	}
	return ctx
}
