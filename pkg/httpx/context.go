package httpx

import (
	"context"

	"github.com/datakwip/mcp-gateway/pkg/jwtx"
)

type ctxKey string

const (
	ctxKeyPrincipal ctxKey = "principal"
)

// ContextWithPrincipal attaches a verified Principal to the request context.
// Only the authentication middleware should call this.
func ContextWithPrincipal(ctx context.Context, p jwtx.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the verified caller identity, if any.
func PrincipalFromContext(ctx context.Context) (jwtx.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(jwtx.Principal)
	return p, ok
}
