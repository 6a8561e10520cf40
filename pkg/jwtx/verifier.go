package jwtx

import (
	"context"
	"time"
)

// MaxTokenSize is the largest raw token the verifier will look at. Anything
// bigger is rejected before any decoding work happens (DoS guard).
const MaxTokenSize = 10 * 1024

// Verifier validates a raw bearer token and returns the authenticated
// Principal if every check passes.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Principal, error)
}

// VerifyOptions captures what the gateway expects of every token.
type VerifyOptions struct {
	// Issuer the token must carry, matched exactly. Required.
	Issuer string

	// Audience is the app client id. Enforced only when the token carries
	// an aud claim; Cognito access tokens omit it.
	Audience string

	// TokenUse restricts the token_use claim ("access" or "id").
	// Empty accepts either.
	TokenUse string

	// RequiredScopes must all appear in the token's scope claim.
	RequiredScopes []string

	// MaxAge caps token age measured from iat. Zero means
	// DefaultMaxTokenAge.
	MaxAge time.Duration
}

// Principal is the verified caller identity. One exists only after a raw
// token has passed every verifier check; nothing else constructs one from
// unverified input.
type Principal struct {
	Subject  string
	Username string
	Email    string

	scopes map[string]struct{}
}

func newPrincipal(c *Claims) Principal {
	scopes := make(map[string]struct{})
	for _, s := range c.Scopes() {
		scopes[s] = struct{}{}
	}

	username := c.Username
	if username == "" {
		username = c.CognitoUsername
	}
	if username == "" {
		username = c.Subject
	}

	return Principal{
		Subject:  c.Subject,
		Username: username,
		Email:    c.Email,
		scopes:   scopes,
	}
}

// NewPrincipal builds a Principal directly from a subject and scope list.
// Verification constructs principals from validated claims; this is for
// callers wiring test doubles or trusted internal identities.
func NewPrincipal(subject string, scopes ...string) Principal {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return Principal{Subject: subject, scopes: set}
}

// HasScope reports whether the principal was granted the scope.
func (p Principal) HasScope(scope string) bool {
	_, ok := p.scopes[scope]
	return ok
}

// ScopeList returns the granted scopes in no particular order.
func (p Principal) ScopeList() []string {
	out := make([]string, 0, len(p.scopes))
	for s := range p.scopes {
		out = append(out, s)
	}
	return out
}

// Authorize is the authorization check: allow iff every required scope was
// granted to the principal. Pure, no side effects.
func Authorize(p Principal, required ...string) error {
	for _, want := range required {
		if !p.HasScope(want) {
			return ErrInsufficientScope
		}
	}
	return nil
}
