package talim

import (
	"context"
	"errors"
	"time"

	"github.com/uzbek-talim/talim/api"
	"github.com/uzbek-talim/talim/session"
)

// Bootstrap resolves the session exactly once per Client, typically at
// application start. Whatever else happens, the session leaves the loading
// state when Bootstrap returns:
//
//   - no stored token: the session resolves unauthenticated;
//   - stored token and stored identity: the session resolves as-is;
//   - stored token without identity: the identity is fetched with that
//     token and installed, or the session is cleared when the backend
//     rejects it.
//
// Repeat calls return the first call's result without fetching again.
func (c *Client) Bootstrap(ctx context.Context) error {
	if c == nil || c.store == nil {
		return ErrClientNotReady
	}

	c.bootstrapOnce.Do(func() {
		c.bootstrapErr = c.bootstrap(ctx)
	})
	return c.bootstrapErr
}

func (c *Client) bootstrap(ctx context.Context) error {
	snap := c.store.Snapshot()

	if snap.AccessToken == "" {
		c.store.SetLoading(ctx, false)
		c.metricInc(MetricBootstrapCleared)
		c.emitAudit(ctx, auditEventBootstrapCleared, true, "", nil, func() map[string]string {
			return map[string]string{"reason": "no_token"}
		})
		return nil
	}

	if snap.Identity != nil {
		c.store.SetLoading(ctx, false)
		c.metricInc(MetricBootstrapResolved)
		c.emitAudit(ctx, auditEventBootstrapResolved, true, snap.Identity.ID, nil, func() map[string]string {
			return map[string]string{"source": "storage"}
		})
		return nil
	}

	// A token whose expiry is already in the past cannot resolve; skip the
	// round trip and clear the session.
	if tokenExpired(snap.AccessToken, time.Now()) {
		c.store.Logout(ctx)
		c.store.SetLoading(ctx, false)
		c.metricInc(MetricBootstrapCleared)
		c.emitAudit(ctx, auditEventBootstrapCleared, true, "", ErrSessionExpired, func() map[string]string {
			return map[string]string{"reason": "token_expired"}
		})
		return nil
	}

	identity, err := c.fetchIdentity(ctx, snap.AccessToken)
	if err != nil {
		// Any fetch failure resolves the session unauthenticated: a client
		// that cannot prove its token belongs to someone must not render as
		// signed-in. The 401 hook has already cleared tokens in that case;
		// Logout is idempotent for the rest.
		c.store.Logout(ctx)
		c.store.SetLoading(ctx, false)
		c.metricInc(MetricBootstrapCleared)
		c.emitAudit(ctx, auditEventBootstrapCleared, false, "", err, nil)
		if errors.Is(err, api.ErrUnauthorized) {
			return nil
		}
		return mapAPIError(err)
	}

	c.store.SetIdentity(ctx, identity)
	c.store.SetLoading(ctx, false)
	c.metricInc(MetricBootstrapResolved)
	c.emitAudit(ctx, auditEventBootstrapResolved, true, identity.ID, nil, func() map[string]string {
		return map[string]string{"source": "backend"}
	})
	return nil
}

// fetchIdentity resolves the profile behind a specific token, bypassing the
// store-backed token source so callers can verify a token before installing
// it.
func (c *Client) fetchIdentity(ctx context.Context, token string) (*session.Identity, error) {
	var identity session.Identity
	ctx = api.WithBearerToken(c.requestContext(ctx), token)
	if err := c.gateway.Get(ctx, "/auth/me", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}
