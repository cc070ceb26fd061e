package talim

import (
	"errors"
	"fmt"

	"github.com/uzbek-talim/talim/api"
)

var (
	// ErrClientNotReady is returned when an operation runs before Build
	// wired its dependencies.
	ErrClientNotReady = errors.New("client not initialized")
	// ErrInvalidCredentials is returned when the backend rejects a phone and
	// password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired is returned when the backend rejects the current
	// access token. The session has already been torn down when callers see
	// this.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden is returned when the signed-in role may not perform the
	// operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when a request fails validation, locally or
	// on the backend. The structured payload travels alongside and can be
	// recovered with errors.As into *api.Error.
	ErrValidation = errors.New("validation failed")
	// ErrPhoneTaken is returned when registration hits an already-registered
	// phone number.
	ErrPhoneTaken = errors.New("phone already registered")
	// ErrAccessKeyRequired is returned when a gated test is fetched without
	// its access key.
	ErrAccessKeyRequired = errors.New("test access key required")
	// ErrBackendUnavailable is returned for 5xx responses.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// mapAPIError translates a gateway error into the package's sentinel
// vocabulary while keeping the structured payload reachable via errors.As.
func mapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Status == 401:
		return errors.Join(ErrSessionExpired, err)
	case apiErr.Status == 403:
		return errors.Join(ErrForbidden, err)
	case apiErr.Status == 404:
		return errors.Join(ErrNotFound, err)
	case apiErr.Status == 422 || len(apiErr.Fields) > 0:
		return errors.Join(ErrValidation, err)
	case apiErr.Status >= 500:
		return errors.Join(ErrBackendUnavailable, err)
	default:
		return err
	}
}

func validationError(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
