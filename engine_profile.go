package talim

import (
	"context"
	"io"

	"github.com/uzbek-talim/talim/session"
)

// UpdateProfile patches a user's profile. When the target is the signed-in
// user, the stored identity is refreshed from the response so the session
// never renders stale profile data.
func (c *Client) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*session.Identity, error) {
	if c == nil || c.gateway == nil {
		return nil, ErrClientNotReady
	}
	if err := c.validateStruct(req); err != nil {
		return nil, err
	}

	ctx = c.requestContext(ctx)
	var updated session.Identity
	if err := c.gateway.Patch(ctx, "/users/"+userID, req, &updated); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventProfileUpdate, false, userID, err, nil)
		return nil, err
	}

	if snap := c.store.Snapshot(); snap.Identity != nil && snap.Identity.ID == updated.ID {
		c.store.SetIdentity(ctx, &updated)
	}
	c.emitAudit(ctx, auditEventProfileUpdate, true, updated.ID, nil, nil)
	return &updated, nil
}

// UploadAvatar uploads a new avatar image and refreshes the stored
// identity's avatar URL.
func (c *Client) UploadAvatar(ctx context.Context, filename string, content io.Reader) (string, error) {
	if c == nil || c.gateway == nil {
		return "", ErrClientNotReady
	}

	ctx = c.requestContext(ctx)
	var resp struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.gateway.PostFile(ctx, "/users/upload-avatar", "file", filename, content, &resp); err != nil {
		err = mapAPIError(err)
		c.emitAudit(ctx, auditEventAvatarUpload, false, "", err, nil)
		return "", err
	}

	if snap := c.store.Snapshot(); snap.Identity != nil {
		updated := *snap.Identity
		updated.AvatarURL = resp.AvatarURL
		c.store.SetIdentity(ctx, &updated)
	}
	c.emitAudit(ctx, auditEventAvatarUpload, true, "", nil, nil)
	return resp.AvatarURL, nil
}
