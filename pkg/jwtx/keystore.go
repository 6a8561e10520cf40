package jwtx

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// RemoteKeyStore caches the identity provider's public signing keys,
// fetching the full JWKS document lazily on the first miss and refreshing
// when an unknown kid shows up (key rotation). A successful fetch replaces
// the cached set atomically.
//
// Concurrency: refreshes run under single-flight discipline, so at most one
// JWKS request is outstanding at a time and concurrent missers share its
// result. A caller whose context is cancelled stops waiting, but the shared
// fetch itself keeps running so other waiters still benefit.
type RemoteKeyStore struct {
	url    string
	client *http.Client
	keys   *KeySet

	sf singleflight.Group

	// refreshGate bounds how often a refresh may start, so a storm of
	// unknown-kid tokens cannot hammer the provider.
	refreshGate *rate.Limiter

	fetchTimeout time.Duration
	maxAttempts  int
	onFetch      func(err error)

	// lastMu guards lastFetchErr, the outcome of the most recent fetch.
	lastMu       sync.Mutex
	lastFetchErr error
}

// KeyStoreOptions tunes a RemoteKeyStore. The zero value gives sane defaults.
type KeyStoreOptions struct {
	// HTTPClient overrides the client used for JWKS fetches.
	HTTPClient *http.Client

	// MinRefreshInterval is the shortest allowed gap between refresh
	// attempts. Defaults to 1s.
	MinRefreshInterval time.Duration

	// MaxAttempts is the number of tries per refresh, with short backoff
	// in between. Defaults to 3.
	MaxAttempts int

	// FetchTimeout caps a single refresh end to end. Defaults to 10s.
	FetchTimeout time.Duration

	// OnFetch, if set, observes the outcome of every completed JWKS fetch.
	OnFetch func(err error)
}

// NewRemoteKeyStore validates the JWKS URL against the provider allow-list
// and returns an empty store. Validation happens here, at startup, never per
// request: a URL outside the Cognito host pattern is a configuration error.
func NewRemoteKeyStore(jwksURL string, opts KeyStoreOptions) (*RemoteKeyStore, error) {
	if err := ValidateJWKSURL(jwksURL); err != nil {
		return nil, err
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	minInterval := opts.MinRefreshInterval
	if minInterval <= 0 {
		minInterval = time.Second
	}

	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &RemoteKeyStore{
		url:          jwksURL,
		client:       client,
		keys:         NewKeySet(),
		refreshGate:  rate.NewLimiter(rate.Every(minInterval), 1),
		fetchTimeout: timeout,
		maxAttempts:  attempts,
		onFetch:      opts.OnFetch,
	}, nil
}

// ValidateJWKSURL rejects JWKS endpoints that are not the identity
// provider's own. Only HTTPS Cognito pool endpoints pass.
func ValidateJWKSURL(jwksURL string) error {
	u, err := url.Parse(jwksURL)
	if err != nil {
		return fmt.Errorf("jwtx: invalid jwks url: %w", err)
	}
	if u.Scheme != "https" {
		return errors.New("jwtx: jwks url must use https")
	}
	host := u.Hostname()
	if !strings.HasPrefix(host, "cognito-idp.") || !strings.HasSuffix(host, ".amazonaws.com") {
		return errors.New("jwtx: jwks url host is not an allow-listed identity provider")
	}
	return nil
}

// Resolve returns the public key for kid, refreshing the cached JWKS once on
// a miss. A second miss after refresh returns ErrNoKey without retrying; the
// token simply wasn't signed by a key the provider publishes.
func (s *RemoteKeyStore) Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	// Fast path: kid already cached. Callers with known kids never wait on
	// an in-flight refresh.
	if key, err := s.keys.Get(kid); err == nil {
		return key, nil
	}

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}

	return s.keys.Get(kid)
}

// Refresh forces a JWKS fetch, sharing any in-flight one.
func (s *RemoteKeyStore) Refresh(ctx context.Context) error {
	return s.refresh(ctx)
}

// IsReady reports whether the store has loaded at least one key.
func (s *RemoteKeyStore) IsReady() bool {
	return s.keys.IsReady()
}

func (s *RemoteKeyStore) lastError() error {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return s.lastFetchErr
}

func (s *RemoteKeyStore) refresh(ctx context.Context) error {
	ch := s.sf.DoChan("jwks", func() (any, error) {
		// Gate denied: a refresh just completed. Serving from the current
		// cache is only sound if that refresh succeeded; during an outage
		// the misses inside the gate window stay upstream errors instead
		// of decaying into unknown-kid rejections.
		if !s.refreshGate.Allow() {
			return nil, s.lastError()
		}
		return nil, s.fetch()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		// Abandon only this caller's continuation. The fetch goroutine
		// finishes and repopulates the cache for other waiters.
		return ctx.Err()
	}
}

// fetch performs the JWKS request with bounded retries and atomically
// replaces the key set on success. It runs detached from any single
// request's context so one caller's cancellation cannot starve the rest.
func (s *RemoteKeyStore) fetch() (err error) {
	defer func() {
		s.lastMu.Lock()
		s.lastFetchErr = err
		s.lastMu.Unlock()
		if s.onFetch != nil {
			s.onFetch(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUpstream, lastErr)
			}
		}

		jwks, err := s.fetchOnce(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		if err := s.keys.ResetFromJWKS(*jwks); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}

func (s *RemoteKeyStore) fetchOnce(ctx context.Context) (*JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch returned %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, err
	}
	return &jwks, nil
}
