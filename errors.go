package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes exposed on rich errors so API clients can branch without
// parsing messages.
const (
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeInvalidToken    = "INVALID_TOKEN"
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeTokenMalformed  = "TOKEN_MALFORMED"
	TextCodeInvalidSecret   = "INVALID_SECRET"
	TextCodeDuplicateEmail  = "DUPLICATE_EMAIL"
	TextCodeEmptyPassword   = "EMPTY_PASSWORD"
	TextCodeTooManyAttempts = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeAccountInactive = "ACCOUNT_INACTIVE"
	TextCodeForbidden       = "INSUFFICIENT_ROLE"
	TextCodeIdentityMissing = "IDENTITY_NOT_FOUND"
)

// ErrIdentityNotFound is the error we return for non found identities.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeIdentityMissing)

// ErrMismatchedHashAndPassword signals a failed password comparison. The
// message is intentionally indistinguishable from an unknown identifier.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrInvalidCredentials is the single response for any login failure, so the
// endpoint cannot be used to probe which emails exist.
var ErrInvalidCredentials = goerrors.New("Invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrInvalidToken is the collapsed verification failure: bad signature,
// malformed token, and expiry all surface identically to callers.
var ErrInvalidToken = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidToken)

// ErrTokenExpired is returned by TokenService.Validate; the minter collapses
// it into ErrInvalidToken before it ever reaches a response.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed mirrors ErrTokenExpired for undecodable tokens.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrSecretInvalid covers every single-use secret failure: unknown, already
// consumed, or expired. Callers must not learn which.
var ErrSecretInvalid = goerrors.New("invalid or expired token", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidSecret)

// ErrDuplicateEmail rejects registration against an existing address.
var ErrDuplicateEmail = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeDuplicateEmail)

// ErrNoEmptyString rejects empty plaintext before it reaches bcrypt.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrTooManyLoginAttempts enforces the login cool down window.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrIdentityInactive blocks deactivated accounts from authenticating.
var ErrIdentityInactive = goerrors.New("account is not active", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeAccountInactive)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired") ||
		strings.Contains(err.Error(), "token has expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
