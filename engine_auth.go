package talim

import (
	"context"
	"errors"
	"net/url"

	"github.com/uzbek-talim/talim/api"
	"github.com/uzbek-talim/talim/session"
)

type loginRequest struct {
	Phone    string `validate:"required"`
	Password string `validate:"required"`
}

// Login exchanges a phone and password for a session. On success the
// identity and both tokens are installed in the session store as one
// observable transition; no reader can ever see tokens without an identity.
func (c *Client) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(loginRequest{Phone: phone, Password: password}); err != nil {
		c.metricInc(MetricLoginFailure)
		return nil, err
	}

	ctx = c.requestContext(ctx)

	// The credential endpoint is form-encoded and answers 401 for a bad
	// pair, which is a credential failure here, not an expired session. The
	// global teardown that fires on it is a no-op against an empty session.
	form := url.Values{
		"username": {phone},
		"password": {password},
	}
	var tokens TokenPair
	if err := c.gateway.PostForm(ctx, "/auth/login", form, &tokens); err != nil {
		c.metricInc(MetricLoginFailure)
		if errors.Is(err, api.ErrUnauthorized) {
			err = errors.Join(ErrInvalidCredentials, err)
		} else {
			err = mapAPIError(err)
		}
		c.emitAudit(ctx, auditEventLoginFailure, false, "", err, func() map[string]string {
			return map[string]string{"phone": phone}
		})
		return nil, err
	}

	// Resolve the identity with the fresh token before touching the store,
	// so a failure here leaves the previous session state intact.
	identity, err := c.fetchIdentity(ctx, tokens.AccessToken)
	if err != nil {
		c.metricInc(MetricLoginFailure)
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventLoginFailure, false, "", err, func() map[string]string {
			return map[string]string{"phone": phone, "stage": "identity_fetch"}
		})
		return nil, err
	}

	c.store.Login(ctx, identity, tokens.AccessToken, tokens.RefreshToken)
	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, auditEventLoginSuccess, true, identity.ID, nil, nil)

	return &LoginResult{
		Identity:     identity,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Register creates an account. The caller signs in separately afterwards.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return err
	}

	ctx = c.requestContext(ctx)
	if err := c.gateway.Post(ctx, "/auth/register", req, nil); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status == 409 {
			err = errors.Join(ErrPhoneTaken, err)
		} else {
			err = mapAPIError(err)
		}
		c.emitAudit(ctx, auditEventRegisterFailure, false, "", err, func() map[string]string {
			return map[string]string{"phone": req.Phone}
		})
		return err
	}

	c.emitAudit(ctx, auditEventRegisterSuccess, true, "", nil, func() map[string]string {
		return map[string]string{"phone": req.Phone}
	})
	return nil
}

// VerifyPhone confirms a registered phone number with its SMS code.
func (c *Client) VerifyPhone(ctx context.Context, phone, code string) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}
	req := VerifyPhoneRequest{Phone: phone, Code: code}
	if err := c.validateStruct(req); err != nil {
		return err
	}
	if err := c.gateway.Post(c.requestContext(ctx), "/auth/verify", req, nil); err != nil {
		return mapAPIError(err)
	}
	return nil
}

// ChangePassword rotates the signed-in user's password. The current
// session and its tokens stay valid.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return err
	}

	ctx = c.requestContext(ctx)
	if err := c.gateway.Post(ctx, "/auth/change-password", req, nil); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventPasswordChanged, false, c.currentUserID(), err, nil)
		return err
	}
	c.emitAudit(ctx, auditEventPasswordChanged, true, c.currentUserID(), nil, nil)
	return nil
}

// DeleteAccount removes the signed-in user's account on the backend and
// clears the local session.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}

	ctx = c.requestContext(ctx)
	userID := c.currentUserID()
	if err := c.gateway.Delete(ctx, "/auth/account"); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventAccountDeleted, false, userID, err, nil)
		return err
	}

	c.store.Logout(ctx)
	c.emitAudit(ctx, auditEventAccountDeleted, true, userID, nil, nil)
	return nil
}

func (c *Client) currentUserID() string {
	if snap := c.store.Snapshot(); snap.Identity != nil {
		return snap.Identity.ID
	}
	return ""
}

// Logout clears the session. It is idempotent and purely local: the backend
// holds no server-side session to revoke, tokens simply stop being sent.
func (c *Client) Logout(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	snap := c.store.Snapshot()
	c.store.Logout(ctx)
	c.metricInc(MetricLogout)

	userID := ""
	if snap.Identity != nil {
		userID = snap.Identity.ID
	}
	c.emitAudit(ctx, auditEventLogout, true, userID, nil, nil)
}

// Me returns the identity behind the current session token, straight from
// the backend.
func (c *Client) Me(ctx context.Context) (*session.Identity, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	var identity session.Identity
	if err := c.gateway.Get(c.requestContext(ctx), "/auth/me", nil, &identity); err != nil {
		return nil, mapAPIError(err)
	}
	return &identity, nil
}
