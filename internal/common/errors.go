// Package common defines shared constants and sentinel errors used across
// the bot, web and service layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Login-token lifecycle errors. A token that was never issued, has
	// passed its TTL, or was consumed outside its grace window is
	// indistinguishable to the caller.
	ErrTokenExpiredOrInvalid = errors.New("token expired or invalid")

	// Credential errors.
	ErrCredentialMalformed   = errors.New("credential malformed")
	ErrDecryptionAuthFailure = errors.New("decryption authentication failure")

	// Session errors (invalid signature, wrong shape, or expired).
	ErrSessionInvalidOrExpired = errors.New("session invalid or expired")
)
