package subsonic

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a Subsonic API error.
//
// Code is the protocol error code from a failed subsonic-response.
// HTTPStatus is set instead when the server rejected the request before
// producing a protocol payload (for example 401 from a reverse proxy).
type Error struct {
	Code       int    // Subsonic error code
	Message    string // Error message from the server
	HTTPStatus int    // HTTP status for transport level rejections
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("subsonic: http %d: %s", e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("subsonic: error %d: %s", e.Code, e.Message)
}

// Is reports whether the error belongs to one of the taxonomy sentinels
// (ErrAuth, ErrTransport, ErrNotFound, ErrConflict) or has the same code as
// another *Error. Every *Error matches exactly one sentinel.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuth, ErrTransport, ErrNotFound, ErrConflict:
		return e.kind() == target
	}

	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.HTTPStatus == t.HTTPStatus
}

// kind maps the error onto its taxonomy sentinel.
//
// Codes the user has to act on (credentials, permissions, protocol
// version, account state) are ErrAuth. Generic failures and missing
// parameters are ErrTransport.
func (e *Error) kind() error {
	if e.HTTPStatus != 0 {
		switch e.HTTPStatus {
		case http.StatusUnauthorized:
			return ErrAuth
		case http.StatusConflict:
			return ErrConflict
		default:
			return ErrTransport
		}
	}
	switch e.Code {
	case ErrCodeClientTooOld,
		ErrCodeServerTooOld,
		ErrCodeWrongCredentials,
		ErrCodeTokenAuthUnsupported,
		ErrCodeAuthMechanismUnsupported,
		ErrCodeConflictingAuth,
		ErrCodeInvalidAPIKey,
		ErrCodeNotAuthorized,
		ErrCodeTrialExpired:
		return ErrAuth
	case ErrCodeNotFound:
		return ErrNotFound
	default:
		return ErrTransport
	}
}

// Subsonic error codes.
const (
	ErrCodeGeneric                  = 0
	ErrCodeMissingParameter         = 10
	ErrCodeClientTooOld             = 20
	ErrCodeServerTooOld             = 30
	ErrCodeWrongCredentials         = 40
	ErrCodeTokenAuthUnsupported     = 41
	ErrCodeAuthMechanismUnsupported = 42
	ErrCodeConflictingAuth          = 43
	ErrCodeInvalidAPIKey            = 44
	ErrCodeNotAuthorized            = 50
	ErrCodeTrialExpired             = 60
	ErrCodeNotFound                 = 70
)

// Error taxonomy. Use errors.Is to classify any error returned by this
// package.
var (
	// ErrAuth is matched when the server rejected the credentials, the
	// user's permissions, the client protocol version or the account.
	// Users should re-check their settings; retrying will not help.
	ErrAuth = errors.New("subsonic: authentication rejected")

	// ErrTransport is matched for network failures, timeouts, 5xx
	// responses, payloads that are not a subsonic-response and failed
	// responses with the generic or missing parameter codes.
	ErrTransport = errors.New("subsonic: transport failure")

	// ErrNotFound is matched when a referenced item no longer exists.
	ErrNotFound = errors.New("subsonic: not found")

	// ErrConflict is matched when a write was rejected because of
	// server side state.
	ErrConflict = errors.New("subsonic: conflict")

	// ErrMissingCredentials is returned before any request is made when
	// the server URL, username or password is empty. It matches ErrAuth.
	ErrMissingCredentials = fmt.Errorf("%w: server url, username and password are required", ErrAuth)
)

// transportError wraps err so that it matches ErrTransport while keeping
// the underlying cause (context.Canceled, *url.Error, ...) reachable.
func transportError(endpoint string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, endpoint, err)
}
