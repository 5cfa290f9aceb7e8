package session

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeCredentialExpired   = "CREDENTIAL_EXPIRED"
	textCodeCredentialMalformed = "CREDENTIAL_MALFORMED"
	textCodeRemoteUnavailable   = "REMOTE_UNAVAILABLE"
)

// ErrCredentialExpired marks a decoded credential whose expiry claim is in
// the past. Callers downgrade to anonymous instead of surfacing it.
var ErrCredentialExpired = goerrors.New("credential is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeCredentialExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrCredentialMalformed marks a token that could not be decoded
// structurally. Treated the same as an absent credential.
var ErrCredentialMalformed = goerrors.New("credential is malformed", goerrors.CategoryBadInput).
	WithTextCode(textCodeCredentialMalformed).
	WithCode(goerrors.CodeBadRequest)

// ErrRemoteUnavailable marks a transport failure or an unsuccessful
// envelope from the remote API. The client maps it to an empty fallback.
var ErrRemoteUnavailable = goerrors.New("remote api unavailable", goerrors.CategoryOperation).
	WithTextCode(textCodeRemoteUnavailable)

// ErrNoPendingVerification is returned when a verification step is
// consumed without a stored pending triple.
var ErrNoPendingVerification = goerrors.New("no pending verification", goerrors.CategoryNotFound).
	WithTextCode("NO_PENDING_VERIFICATION").
	WithCode(goerrors.CodeNotFound)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired") ||
		strings.Contains(err.Error(), "credential is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "token contains an invalid number of segments") ||
		strings.Contains(err.Error(), "credential is malformed") ||
		strings.Contains(err.Error(), "unable to decode credential")
}
