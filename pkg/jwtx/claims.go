package jwtx

import (
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token use values Cognito stamps into the token_use claim.
const (
	TokenUseAccess = "access"
	TokenUseID     = "id"
)

// DefaultMaxTokenAge is how old an otherwise-valid token's iat may be.
// Prevents replay of long-since-issued tokens.
const DefaultMaxTokenAge = 24 * time.Hour

// Claims are the decoded token payload as Cognito issues it. The scope claim
// is a single space-delimited string, not an array.
type Claims struct {
	jwt.RegisteredClaims

	// TokenUse distinguishes access tokens from id tokens ("access"|"id").
	TokenUse string `json:"token_use,omitempty"`

	// Scope is the space-delimited granted scope string, e.g.
	// "openid tools:read".
	Scope string `json:"scope,omitempty"`

	// Username carries the provider's username claim. Access tokens use
	// "username", id tokens use "cognito:username".
	Username        string `json:"username,omitempty"`
	CognitoUsername string `json:"cognito:username,omitempty"`

	// Email is present on id tokens when the email scope was granted.
	Email string `json:"email,omitempty"`
}

// Scopes splits the space-delimited scope claim into fields.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf). A token without an exp claim is treated as
// expired: we cannot prove it is still live.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateMaxAge rejects tokens issued more than maxAge ago. A token with no
// iat claim is rejected the same way since its age cannot be established.
func (c *Claims) ValidateMaxAge(now time.Time, maxAge time.Duration) error {
	if c.IssuedAt == nil {
		return ErrTokenTooOld
	}
	if now.Sub(c.IssuedAt.Time) > maxAge {
		return ErrTokenTooOld
	}
	return nil
}

// ValidateIssuer checks the iss claim against the expected value exactly.
func (c *Claims) ValidateIssuer(expected string) error {
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience enforces the aud claim only when the token carries one.
// Cognito access tokens legitimately omit aud; tightening this would reject
// them, so absence is tolerated while presence requires an exact member match.
func (c *Claims) ValidateAudience(expected string) error {
	if len(c.Audience) == 0 || expected == "" {
		return nil
	}
	if !slices.Contains(c.Audience, expected) {
		return ErrAudience
	}
	return nil
}

// ValidateSubject requires a non-empty sub claim.
func (c *Claims) ValidateSubject() error {
	if strings.TrimSpace(c.Subject) == "" {
		return ErrMissingSubject
	}
	return nil
}

// ValidateTokenUse checks the token_use claim is a known value and, when a
// specific use is required, that it matches.
func (c *Claims) ValidateTokenUse(required string) error {
	if c.TokenUse != TokenUseAccess && c.TokenUse != TokenUseID {
		return ErrTokenUse
	}
	if required != "" && c.TokenUse != required {
		return ErrTokenUse
	}
	return nil
}

// ValidateScopes checks every required scope is present in the granted set.
func (c *Claims) ValidateScopes(required []string) error {
	if len(required) == 0 {
		return nil
	}

	granted := c.Scopes()
	for _, want := range required {
		if !slices.Contains(granted, want) {
			return ErrInsufficientScope
		}
	}
	return nil
}
