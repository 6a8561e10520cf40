package jwtx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RS256Verifier validates JWTs signed with RS256 against keys resolved
// through a KeyResolver. Checks run in a fixed order and the first failure
// wins; no payload content is trusted before the signature is verified.
//
// Only RS256 is ever accepted. Tokens declaring "none" or a symmetric
// algorithm fail at the header check regardless of their payload, which
// closes off algorithm-confusion attacks.
type RS256Verifier struct {
	keys KeyResolver
	opts VerifyOptions

	// now is swappable for tests.
	now func() time.Time
}

// NewVerifierRS256 creates a verifier bound to a key resolver and the
// gateway's token expectations.
func NewVerifierRS256(keys KeyResolver, opts VerifyOptions) *RS256Verifier {
	return &RS256Verifier{
		keys: keys,
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// Verify runs the full ordered validation and returns a Principal only on
// complete success. Read-only: the single side effect is key resolution.
func (v *RS256Verifier) Verify(ctx context.Context, raw string) (Principal, error) {
	// 1. Structural guards before any decoding.
	if len(raw) > MaxTokenSize {
		return Principal{}, ErrOversized
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Principal{}, ErrMalformed
	}
	for _, p := range parts {
		if p == "" || !isBase64URL(p) {
			return Principal{}, ErrMalformed
		}
	}

	// 2. Header: the declared algorithm must be exactly RS256.
	header, err := decodeHeader(parts[0])
	if err != nil {
		return Principal{}, ErrMalformed
	}
	if header.Alg != "RS256" {
		return Principal{}, ErrAlgMismatch
	}
	if header.Kid == "" {
		return Principal{}, ErrMalformed
	}

	// 3. Resolve the signing key. The store refreshes once on a miss.
	key, err := v.keys.Resolve(ctx, header.Kid)
	if err != nil {
		if errors.Is(err, ErrNoKey) {
			return Principal{}, ErrUnknownKID
		}
		return Principal{}, err
	}

	// 4. Signature over header+payload, before trusting any claim.
	// Claim validation is ours: the parser only checks the signature, so
	// every claim failure maps onto one of our ordered checks below.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Principal{}, ErrMalformed
		}
		return Principal{}, ErrInvalidSig
	}

	// 5-10. Claim checks in spec order, fail fast.
	now := v.now()
	maxAge := v.opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxTokenAge
	}

	if err := claims.ValidateExpiry(now); err != nil {
		return Principal{}, err
	}
	if err := claims.ValidateMaxAge(now, maxAge); err != nil {
		return Principal{}, err
	}
	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return Principal{}, err
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return Principal{}, err
	}
	if err := claims.ValidateSubject(); err != nil {
		return Principal{}, err
	}
	if err := claims.ValidateTokenUse(v.opts.TokenUse); err != nil {
		return Principal{}, err
	}
	if err := claims.ValidateScopes(v.opts.RequiredScopes); err != nil {
		return Principal{}, err
	}

	return newPrincipal(claims), nil
}

func decodeHeader(seg string) (tokenHeader, error) {
	var h tokenHeader
	b, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return h, err
	}
	err = json.Unmarshal(b, &h)
	return h, err
}

func isBase64URL(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
