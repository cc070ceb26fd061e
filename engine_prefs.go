package talim

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/uzbek-talim/talim/storage"
)

const (
	rememberedPhoneKey   = "talim-remembered-phone"
	registrationDraftKey = "talim-registration-draft"
)

// RememberPhone stores the login phone so the sign-in form can prefill it
// next time. The preference survives logout on purpose: it identifies the
// device's usual user, not a session.
func (c *Client) RememberPhone(ctx context.Context, phone string) error {
	if c == nil || c.backend == nil {
		return ErrClientNotReady
	}
	if err := c.backend.Set(ctx, rememberedPhoneKey, []byte(phone)); err != nil {
		return err
	}
	c.emitAudit(ctx, auditEventPhoneRemembered, true, "", nil, nil)
	return nil
}

// RememberedPhone returns the stored login phone, or empty when none is
// stored.
func (c *Client) RememberedPhone(ctx context.Context) (string, error) {
	if c == nil || c.backend == nil {
		return "", ErrClientNotReady
	}
	data, err := c.backend.Get(ctx, rememberedPhoneKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ForgetPhone clears the stored login phone.
func (c *Client) ForgetPhone(ctx context.Context) error {
	if c == nil || c.backend == nil {
		return ErrClientNotReady
	}
	return c.backend.Delete(ctx, rememberedPhoneKey)
}

// RegistrationDraft is the partially filled sign-up form, minus the
// password, which is never written to durable storage.
type RegistrationDraft struct {
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
}

// SaveRegistrationDraft persists a partially filled sign-up form so an
// interrupted registration can continue where it left off.
func (c *Client) SaveRegistrationDraft(ctx context.Context, draft RegistrationDraft) error {
	if c == nil || c.backend == nil {
		return ErrClientNotReady
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	if err := c.backend.Set(ctx, registrationDraftKey, data); err != nil {
		return err
	}
	c.emitAudit(ctx, auditEventRegistrationDraft, true, "", nil, nil)
	return nil
}

// LoadRegistrationDraft returns the stored draft. A missing or corrupt
// draft reads as empty.
func (c *Client) LoadRegistrationDraft(ctx context.Context) (RegistrationDraft, error) {
	if c == nil || c.backend == nil {
		return RegistrationDraft{}, ErrClientNotReady
	}
	data, err := c.backend.Get(ctx, registrationDraftKey)
	if errors.Is(err, storage.ErrNotFound) {
		return RegistrationDraft{}, nil
	}
	if err != nil {
		return RegistrationDraft{}, err
	}

	var draft RegistrationDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		_ = c.backend.Delete(ctx, registrationDraftKey)
		return RegistrationDraft{}, nil
	}
	return draft, nil
}

// ClearRegistrationDraft removes the stored draft, typically after a
// successful registration.
func (c *Client) ClearRegistrationDraft(ctx context.Context) error {
	if c == nil || c.backend == nil {
		return ErrClientNotReady
	}
	return c.backend.Delete(ctx, registrationDraftKey)
}
