package talim

import (
	"context"
	"errors"
	"time"

	"github.com/uzbek-talim/talim/api"
)

const (
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLogout            = "logout"
	auditEventRegisterSuccess   = "register_success"
	auditEventRegisterFailure   = "register_failure"
	auditEventPasswordChanged   = "password_changed"
	auditEventAccountDeleted    = "account_deleted"
	auditEventBootstrapResolved = "bootstrap_resolved"
	auditEventBootstrapCleared  = "bootstrap_cleared"
	auditEventSessionExpired    = "session_expired"
	auditEventTelegramLogin     = "telegram_login"
	auditEventTelegramLink      = "telegram_link"
	auditEventProfileUpdate     = "profile_update"
	auditEventAvatarUpload      = "avatar_upload"
	auditEventTestStarted       = "test_started"
	auditEventTestSubmitted     = "test_submitted"
	auditEventTestExpired       = "test_expired"
	auditEventTestSubmitFailed  = "test_submit_failed"
	auditEventPaymentConfirmed  = "payment_confirmed"
	auditEventUserDeleted       = "user_deleted"
	auditEventCourseCreated     = "course_created"
	auditEventCoursePublished   = "course_published"
	auditEventCourseDeleted     = "course_deleted"
	auditEventTestCreated       = "test_created"
	auditEventTestDeleted       = "test_deleted"
	auditEventPhoneRemembered   = "phone_remembered"
	auditEventRegistrationDraft = "registration_draft_saved"
)

// AuditErrorCode is the stable error vocabulary written to audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrValidation         AuditErrorCode = "validation_failed"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrAccessKeyRequired  AuditErrorCode = "access_key_required"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Success:   success,
		Metadata:  metadata,
	}
	if id, ok := api.RequestIDFromContext(ctx); ok {
		event.RequestID = id
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSessionExpired), errors.Is(err, api.ErrUnauthorized):
		return auditErrSessionExpired
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrPhoneTaken):
		return auditErrDuplicate
	case errors.Is(err, ErrAccessKeyRequired):
		return auditErrAccessKeyRequired
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
