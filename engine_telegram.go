package talim

import (
	"context"
)

// TelegramLogin signs in with a verified Telegram widget payload. The
// backend validates the widget hash; on success the session is installed
// the same way a credential login installs it.
func (c *Client) TelegramLogin(ctx context.Context, req TelegramAuthRequest) (*LoginResult, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		c.metricInc(MetricLoginFailure)
		return nil, err
	}

	ctx = c.requestContext(ctx)
	var tokens TokenPair
	if err := c.gateway.Post(ctx, "/auth/telegram", req, &tokens); err != nil {
		c.metricInc(MetricLoginFailure)
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventTelegramLogin, false, "", err, nil)
		return nil, err
	}

	identity, err := c.fetchIdentity(ctx, tokens.AccessToken)
	if err != nil {
		c.metricInc(MetricLoginFailure)
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventTelegramLogin, false, "", err, nil)
		return nil, err
	}

	c.store.Login(ctx, identity, tokens.AccessToken, tokens.RefreshToken)
	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, auditEventTelegramLogin, true, identity.ID, nil, nil)

	return &LoginResult{
		Identity:     identity,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// SendTelegramCode asks the platform bot to message a one-time code to the
// phone's linked Telegram account, for linking or verification.
func (c *Client) SendTelegramCode(ctx context.Context, phone string) error {
	return c.sendTelegramCode(ctx, "/auth/send-telegram-code", phone)
}

// SendTelegramCodeLogin is the login variant of SendTelegramCode; the
// backend only issues a code when the phone belongs to an existing account.
func (c *Client) SendTelegramCodeLogin(ctx context.Context, phone string) error {
	return c.sendTelegramCode(ctx, "/auth/send-telegram-code-login", phone)
}

func (c *Client) sendTelegramCode(ctx context.Context, path, phone string) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}
	req := TelegramCodeRequest{Phone: phone}
	if err := c.validateStruct(req); err != nil {
		return err
	}
	if err := c.gateway.Post(c.requestContext(ctx), path, req, nil); err != nil {
		return mapAPIError(err)
	}
	return nil
}

// VerifyTelegramCode redeems a one-time code. With ReturnTokens set the
// returned pair is non-nil; the session store is not touched either way.
func (c *Client) VerifyTelegramCode(ctx context.Context, req VerifyTelegramCodeRequest) (*TokenPair, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	var tokens TokenPair
	if err := c.gateway.Post(c.requestContext(ctx), "/auth/verify-telegram-code", req, &tokens); err != nil {
		return nil, mapAPIError(err)
	}
	if !req.ReturnTokens || tokens.AccessToken == "" {
		return nil, nil
	}
	return &tokens, nil
}

// LoginWithTelegramCode redeems a login code and installs the session the
// same way a credential login does.
func (c *Client) LoginWithTelegramCode(ctx context.Context, phone, code string) (*LoginResult, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}

	ctx = c.requestContext(ctx)
	tokens, err := c.VerifyTelegramCode(ctx, VerifyTelegramCodeRequest{
		Phone:        phone,
		Code:         code,
		ReturnTokens: true,
	})
	if err != nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventTelegramLogin, false, "", err, nil)
		return nil, err
	}
	if tokens == nil {
		c.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	identity, err := c.fetchIdentity(ctx, tokens.AccessToken)
	if err != nil {
		c.metricInc(MetricLoginFailure)
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventTelegramLogin, false, "", err, nil)
		return nil, err
	}

	c.store.Login(ctx, identity, tokens.AccessToken, tokens.RefreshToken)
	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, auditEventTelegramLogin, true, identity.ID, nil, nil)

	return &LoginResult{
		Identity:     identity,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// LinkTelegram attaches a Telegram account to the signed-in user and
// refreshes the stored identity with the new link.
func (c *Client) LinkTelegram(ctx context.Context, req TelegramAuthRequest) error {
	if c == nil || c.gateway == nil {
		return ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return err
	}

	ctx = c.requestContext(ctx)
	if err := c.gateway.Post(ctx, "/auth/telegram/link", req, nil); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventTelegramLink, false, "", err, nil)
		return err
	}

	if snap := c.store.Snapshot(); snap.Identity != nil {
		updated := *snap.Identity
		updated.TelegramID = req.TelegramID
		c.store.SetIdentity(ctx, &updated)
		c.emitAudit(ctx, auditEventTelegramLink, true, updated.ID, nil, nil)
	}
	return nil
}
