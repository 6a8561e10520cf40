package metrics

import (
	"context"
	"errors"

	"github.com/datakwip/mcp-gateway/pkg/jwtx"
)

// InstrumentVerifier counts every verification by outcome class. The label
// set stays closed so hostile tokens can't mint metric series.
func InstrumentVerifier(inner jwtx.Verifier) jwtx.Verifier {
	return instrumentedVerifier{inner: inner}
}

type instrumentedVerifier struct {
	inner jwtx.Verifier
}

func (v instrumentedVerifier) Verify(ctx context.Context, raw string) (jwtx.Principal, error) {
	p, err := v.inner.Verify(ctx, raw)
	TokenVerificationsTotal.WithLabelValues(verifyOutcome(err)).Inc()
	return p, err
}

func verifyOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, jwtx.ErrExpired):
		return "expired"
	case errors.Is(err, jwtx.ErrInvalidSig):
		return "invalid_signature"
	case errors.Is(err, jwtx.ErrUnknownKID), errors.Is(err, jwtx.ErrNoKey):
		return "unknown_key"
	case errors.Is(err, jwtx.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, jwtx.ErrMalformed), errors.Is(err, jwtx.ErrOversized):
		return "malformed"
	case errors.Is(err, jwtx.ErrInsufficientScope):
		return "insufficient_scope"
	default:
		return "invalid_claims"
	}
}

// FetchObserver counts JWKS fetch outcomes; wire it into the key store's
// OnFetch hook.
func FetchObserver(err error) {
	if err != nil {
		JWKSRefreshesTotal.WithLabelValues("error").Inc()
		return
	}
	JWKSRefreshesTotal.WithLabelValues("ok").Inc()
}
