package jwtx

import "errors"

// Verification failures are terminal and non-transient. None of these carry
// raw token material in their message; the HTTP layer maps them onto generic
// machine-readable codes.
var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrOversized = errors.New("jwtx: token exceeds size limit")

	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrExpired        = errors.New("jwtx: token expired")
	ErrNotYetValid    = errors.New("jwtx: token not yet valid")
	ErrTokenTooOld    = errors.New("jwtx: token too old")
	ErrIssuer         = errors.New("jwtx: issuer mismatch")
	ErrAudience       = errors.New("jwtx: audience mismatch")
	ErrMissingSubject = errors.New("jwtx: missing subject")
	ErrTokenUse       = errors.New("jwtx: invalid token use")

	ErrInsufficientScope = errors.New("jwtx: insufficient scope")
)

// ErrNoKey reports a key id that is not present in the key set.
var ErrNoKey = errors.New("jwtx: key not found")

// ErrUpstream reports a JWKS endpoint failure. Unlike verification failures
// this is transient and maps to a 503, never to a 401.
var ErrUpstream = errors.New("jwtx: jwks endpoint unavailable")
