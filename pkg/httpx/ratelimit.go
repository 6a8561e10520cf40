package httpx

import (
	"hash/fnv"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/datakwip/mcp-gateway/pkg/slogx"
)

// RateLimitConfig defines a fixed counting window.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the window.
	RequestsPerWindow int
	// Window is the counting window duration.
	Window time.Duration
}

// Per-endpoint-class limits. Auth-adjacent surfaces get tight limits,
// monitoring surfaces get generous ones.
// Override with: RATELIMIT_{class}_REQUESTS, RATELIMIT_{class}_WINDOW_SEC
var (
	// AuthLimit for OAuth discovery and auth-adjacent endpoints.
	AuthLimit = RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute}

	// RegisterLimit for dynamic client registration.
	RegisterLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute}

	// MetadataLimit for protected-resource metadata endpoints.
	MetadataLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute}

	// MCPLimit for the main MCP JSON-RPC handler.
	MCPLimit = RateLimitConfig{RequestsPerWindow: 30, Window: time.Minute}

	// ToolsLimit for tool invocations.
	ToolsLimit = RateLimitConfig{RequestsPerWindow: 50, Window: time.Minute}

	// HealthLimit for liveness/readiness probes.
	HealthLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute}
)

// Global per-client envelope applied on top of every endpoint class.
var (
	GlobalMinuteLimit = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute}
	GlobalHourLimit   = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Hour}
)

func init() {
	// Allow overriding rate limits via environment variables (useful for testing)
	AuthLimit = ParseRateLimitFromEnv("AUTH", AuthLimit)
	RegisterLimit = ParseRateLimitFromEnv("REGISTER", RegisterLimit)
	MetadataLimit = ParseRateLimitFromEnv("METADATA", MetadataLimit)
	MCPLimit = ParseRateLimitFromEnv("MCP", MCPLimit)
	ToolsLimit = ParseRateLimitFromEnv("TOOLS", ToolsLimit)
	HealthLimit = ParseRateLimitFromEnv("HEALTH", HealthLimit)
	GlobalMinuteLimit = ParseRateLimitFromEnv("GLOBAL_MINUTE", GlobalMinuteLimit)
	GlobalHourLimit = ParseRateLimitFromEnv("GLOBAL_HOUR", GlobalHourLimit)
}

// ParseRateLimitFromEnv reads rate limit configuration from environment
// variables following the pattern RATELIMIT_{prefix}_{field}.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	return config
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool

	// Remaining is the quota left in the endpoint-class window after this
	// request.
	Remaining int

	// ResetAt is when the binding window rolls over.
	ResetAt time.Time

	// RetryAfter is how long a rejected caller should wait. Zero when
	// Allowed.
	RetryAfter time.Duration
}

// counter is one fixed window's state. Rollover happens lazily: when the
// window has elapsed the next access resets it in place.
type counter struct {
	start  time.Time
	count  int
	window time.Duration
}

const lockStripes = 256

// Limiter tracks fixed-window counters per (client, window) pair. A request
// is admitted only if the endpoint-class window AND every global envelope
// window have capacity; admission then increments them all together, so a
// rejection never leaves a partial increment behind.
//
// Counters for one client are serialized through a striped mutex, which
// makes racing requests at the boundary linearizable: with limit N, no
// interleaving admits N+1. No lock is held across I/O.
type Limiter struct {
	global []RateLimitConfig

	locks    [lockStripes]sync.Mutex
	counters sync.Map // map[string]*counter

	cleanupMu   sync.Mutex
	lastCleanup time.Time

	now func() time.Time
}

// NewLimiter creates a Limiter with the given global envelope windows
// applied per client on top of each endpoint-class window.
func NewLimiter(global ...RateLimitConfig) *Limiter {
	return &Limiter{
		global:      global,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Admit checks all applicable windows for the client and increments them
// together if every one has capacity.
func (l *Limiter) Admit(client, class string, cfg RateLimitConfig) Decision {
	now := l.now()
	d := l.admit(client, class, cfg, now)

	// Outside the stripe lock: the sweep takes stripe locks itself.
	l.maybeCleanup(now)
	return d
}

func (l *Limiter) admit(client, class string, cfg RateLimitConfig, now time.Time) Decision {
	stripe := &l.locks[stripeFor(client)]
	stripe.Lock()
	defer stripe.Unlock()

	// The class window plus the global envelope. The class counter comes
	// first so its quota drives the Remaining/ResetAt metadata.
	type window struct {
		c   *counter
		cfg RateLimitConfig
	}
	windows := make([]window, 0, 1+len(l.global))
	windows = append(windows, window{l.counter(client+"\x00"+class, cfg, now), cfg})
	for i, g := range l.global {
		windows = append(windows, window{l.counter(client+"\x00global:"+strconv.Itoa(i), g, now), g})
	}

	// Reject first, increment none: a counter never goes past its limit.
	for _, w := range windows {
		if w.c.count >= w.cfg.RequestsPerWindow {
			reset := w.c.start.Add(w.cfg.Window)
			return Decision{
				Allowed:    false,
				Remaining:  0,
				ResetAt:    reset,
				RetryAfter: reset.Sub(now),
			}
		}
	}

	for _, w := range windows {
		w.c.count++
	}

	classWin := windows[0]
	return Decision{
		Allowed:   true,
		Remaining: classWin.cfg.RequestsPerWindow - classWin.c.count,
		ResetAt:   classWin.c.start.Add(classWin.cfg.Window),
	}
}

// counter fetches or creates the window counter for key, rolling it over if
// its window has elapsed. Callers hold the client's stripe lock.
func (l *Limiter) counter(key string, cfg RateLimitConfig, now time.Time) *counter {
	v, ok := l.counters.Load(key)
	if !ok {
		v, _ = l.counters.LoadOrStore(key, &counter{start: now, window: cfg.Window})
	}

	c := v.(*counter)
	if !now.Before(c.start.Add(c.window)) {
		c.start = now
		c.count = 0
		c.window = cfg.Window
	}
	return c
}

// maybeCleanup sweeps counters whose windows elapsed long ago so idle keys
// don't accumulate forever. Dropping such a counter is harmless: the next
// access would have reset it anyway.
func (l *Limiter) maybeCleanup(now time.Time) {
	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()

	if now.Sub(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = now

	l.counters.Range(func(key, value any) bool {
		// Counter fields are only touched under the owning client's
		// stripe lock; the sweep takes it per key.
		stripe := &l.locks[stripeFor(clientOf(key.(string)))]
		stripe.Lock()
		c := value.(*counter)
		if now.Sub(c.start) > 2*c.window {
			l.counters.Delete(key)
		}
		stripe.Unlock()
		return true
	})
}

// clientOf recovers the client portion of a counter key.
func clientOf(key string) string {
	if i := strings.IndexByte(key, '\x00'); i >= 0 {
		return key[:i]
	}
	return key
}

func stripeFor(client string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(client))
	return h.Sum32() % lockStripes
}

// RateLimitMiddleware enforces the class limit plus the limiter's global
// envelope, keyed by keyExtractor. Rejections short-circuit with 429,
// Retry-After, and quota headers before any authentication work happens.
func RateLimitMiddleware(l *Limiter, class string, cfg RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				// If we can't extract a key, allow the request but log it
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			d := l.Admit(key, class, cfg)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retryAfter := max(int(d.RetryAfter.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn("rate limit exceeded",
					"class", class,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by resolved client IP only.
func RateLimitByIP(l *Limiter, class string, cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(l, class, cfg, IPKeyExtractor)
}

// RateLimitByPrincipal limits by authenticated subject, falling back to IP.
func RateLimitByPrincipal(l *Limiter, class string, cfg RateLimitConfig) Middleware {
	return RateLimitMiddleware(l, class, cfg, PrincipalKeyExtractor)
}
