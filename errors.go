package admitme

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

// VerificationReason describes why a session token was rejected.
type VerificationReason string

const (
	ReasonMissing      VerificationReason = "missing"
	ReasonMalformed    VerificationReason = "malformed"
	ReasonBadSignature VerificationReason = "bad-signature"
	ReasonExpired      VerificationReason = "expired"
)

const (
	TextCodeTokenMissing      = "TOKEN_MISSING"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeTokenBadSignature = "TOKEN_BAD_SIGNATURE"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeSigningKeyMissing = "SIGNING_KEY_MISSING"
	TextCodeForbidden         = "FORBIDDEN"
	TextCodeUpstream          = "UPSTREAM_ERROR"
	TextCodeNotFound          = "IDENTITY_NOT_FOUND"
)

// ErrTokenMissing is returned when the request carries no session cookie
var ErrTokenMissing = errors.New("missing or malformed JWT", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMissing)

// ErrTokenMalformed token could not be decoded
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenBadSignature signature does not match the signing key
var ErrTokenBadSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenBadSignature)

// ErrTokenExpired token is past its expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrSigningKeyMissing is the signing error returned when no secret is configured
var ErrSigningKeyMissing = errors.New("signing key is required", errors.CategoryInternal).
	WithCode(errors.CodeInternal).
	WithTextCode(TextCodeSigningKeyMissing)

// ErrForbidden authenticated identity lacks the required role
var ErrForbidden = errors.New("Forbidden access", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeNotFound)

// ErrUpstream the user store failed or timed out
var ErrUpstream = errors.New("Service unavailable", errors.CategoryInternal).
	WithCode(http.StatusServiceUnavailable).
	WithTextCode(TextCodeUpstream)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = stderrors.New("unable to decode session")

// NewUpstreamError wraps a store failure so it surfaces as a 5xx response.
func NewUpstreamError(err error, op string) *errors.Error {
	clone := ErrUpstream.Clone()
	clone.Source = err
	return clone.WithMetadata(map[string]any{"operation": op})
}

// NewVerificationError returns a fresh verification error for reason, keeping
// the underlying parser error as its source.
func NewVerificationError(reason VerificationReason, source error) *errors.Error {
	var base *errors.Error
	switch reason {
	case ReasonExpired:
		base = ErrTokenExpired
	case ReasonBadSignature:
		base = ErrTokenBadSignature
	case ReasonMissing:
		base = ErrTokenMissing
	default:
		base = ErrTokenMalformed
	}

	clone := base.Clone()
	clone.Source = source
	return clone.WithMetadata(map[string]any{"reason": string(reason)})
}

// VerificationReasonOf reports the verification reason carried by err.
func VerificationReasonOf(err error) (VerificationReason, bool) {
	if err == nil {
		return "", false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.TextCode {
		case TextCodeTokenExpired:
			return ReasonExpired, true
		case TextCodeTokenBadSignature:
			return ReasonBadSignature, true
		case TextCodeTokenMalformed:
			return ReasonMalformed, true
		case TextCodeTokenMissing:
			return ReasonMissing, true
		}
	}

	switch {
	case IsTokenExpiredError(err):
		return ReasonExpired, true
	case IsBadSignatureError(err):
		return ReasonBadSignature, true
	case IsMalformedError(err):
		return ReasonMalformed, true
	}

	return "", false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsBadSignatureError will check for signature mismatches
func IsBadSignatureError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "signature is invalid")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUpstreamError reports whether err originates from a store failure.
func IsUpstreamError(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == TextCodeUpstream
	}
	return false
}

// IsNotFoundError reports whether err flags a missing identity.
func IsNotFoundError(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryNotFound
	}
	return false
}
