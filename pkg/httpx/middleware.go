package httpx

import "net/http"

// Middleware wraps an http.Handler with cross-cutting behaviour.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to a handler. They are listed innermost first:
// Chain(h, a, b) serves requests through b, then a, then h. Routes list
// their rate limit last so it runs before anything else.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}
