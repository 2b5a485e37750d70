package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicateUsername = "DUPLICATE_USERNAME"
	TextCodeDuplicateEmail    = "DUPLICATE_EMAIL"
	TextCodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
	TextCodeAlreadyVerified   = "ALREADY_VERIFIED"
	TextCodeOTPExpired        = "OTP_EXPIRED"
	TextCodeOTPMismatch       = "OTP_MISMATCH"
	TextCodeBadCredentials    = "INVALID_CREDENTIALS"
	TextCodeNotVerified       = "ACCOUNT_NOT_VERIFIED"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeTokenInvalid      = "TOKEN_INVALID"
)

// ErrDuplicateUsername is returned when a signup reuses a taken username.
// The wire contract keeps the legacy 400 status for duplicates.
var ErrDuplicateUsername = goerrors.New("Username already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUsername).
	WithCode(goerrors.CodeBadRequest)

// ErrDuplicateEmail is returned when a signup reuses a registered email
var ErrDuplicateEmail = goerrors.New("Email already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountNotFound is returned when no account matches the identifier
var ErrAccountNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAlreadyVerified guards re-verification of a verified account.
// It is an idempotency guard, not a state change.
var ErrAlreadyVerified = goerrors.New("User already verified", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeBadRequest)

// ErrOTPExpired is returned once the code's TTL window has elapsed
var ErrOTPExpired = goerrors.New("OTP expired. Please request a new one.", goerrors.CategoryAuth).
	WithTextCode(TextCodeOTPExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrOTPMismatch is returned for a wrong code; account state is untouched
var ErrOTPMismatch = goerrors.New("Invalid OTP", goerrors.CategoryAuth).
	WithTextCode(TextCodeOTPMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials covers both unknown usernames and wrong passwords
// so login cannot be used for username enumeration
var ErrInvalidCredentials = goerrors.New("Invalid username or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotVerified is returned when the password checks out but the account
// never completed OTP verification
var ErrNotVerified = goerrors.New("Account not verified. Please verify your email first.", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotVerified).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their exp claim
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers undecodable tokens and bad signatures
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid is the uniform introspection failure: missing header,
// malformed token, expired token, and unknown subject all collapse here
var ErrTokenInvalid = goerrors.New("Invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the typed bcrypt mismatch error
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
