package jwtx

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// newTestStore builds a RemoteKeyStore pointed at a local stub origin,
// sidestepping the production URL allow-list (which only admits the real
// provider hosts and is covered by TestValidateJWKSURL).
func newTestStore(srv *httptest.Server, minRefresh time.Duration) *RemoteKeyStore {
	return &RemoteKeyStore{
		url:          srv.URL,
		client:       srv.Client(),
		keys:         NewKeySet(),
		refreshGate:  rate.NewLimiter(rate.Every(minRefresh), 1),
		fetchTimeout: 5 * time.Second,
		maxAttempts:  2,
	}
}

func jwksDocument(t *testing.T, kids ...string) (JWKS, map[string]*rsa.PrivateKey) {
	t.Helper()
	doc := JWKS{}
	keys := make(map[string]*rsa.PrivateKey, len(kids))
	for _, kid := range kids {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		keys[kid] = key
		doc.Keys = append(doc.Keys, NewRSAJWK(kid, &key.PublicKey))
	}
	return doc, keys
}

func TestValidateJWKSURL(t *testing.T) {
	t.Run("accepts cognito pool endpoints", func(t *testing.T) {
		err := ValidateJWKSURL("https://cognito-idp.us-east-1.amazonaws.com/us-east-1_Abc/.well-known/jwks.json")
		require.NoError(t, err)
	})

	t.Run("rejects plain http", func(t *testing.T) {
		err := ValidateJWKSURL("http://cognito-idp.us-east-1.amazonaws.com/pool/.well-known/jwks.json")
		require.Error(t, err)
	})

	t.Run("rejects non-provider hosts", func(t *testing.T) {
		err := ValidateJWKSURL("https://evil.example.com/.well-known/jwks.json")
		require.Error(t, err)
	})

	t.Run("rejects lookalike hosts", func(t *testing.T) {
		err := ValidateJWKSURL("https://cognito-idp.us-east-1.amazonaws.com.evil.example/.well-known/jwks.json")
		require.Error(t, err)
	})
}

func TestResolveFetchesLazily(t *testing.T) {
	doc, _ := jwksDocument(t, "kid-1")
	var fetches atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer srv.Close()

	store := newTestStore(srv, time.Nanosecond)

	// Cache starts empty; first resolve triggers exactly one fetch.
	key, err := store.Resolve(context.Background(), "kid-1")
	require.NoError(t, err)
	require.NotNil(t, key)
	require.EqualValues(t, 1, fetches.Load())

	// Known kid is served from the cache.
	_, err = store.Resolve(context.Background(), "kid-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, fetches.Load())
}

func TestResolveUnknownKIDRefreshesOnce(t *testing.T) {
	doc, _ := jwksDocument(t, "kid-1")
	var fetches atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer srv.Close()

	store := newTestStore(srv, time.Minute)

	// Unknown kid: one refresh, then a definitive miss. No recursive retry.
	_, err := store.Resolve(context.Background(), "rogue-kid")
	require.ErrorIs(t, err, ErrNoKey)
	require.EqualValues(t, 1, fetches.Load())

	// Another miss inside the refresh gate window serves from the current
	// cache without another round trip to the provider.
	_, err = store.Resolve(context.Background(), "rogue-kid")
	require.ErrorIs(t, err, ErrNoKey)
	require.EqualValues(t, 1, fetches.Load())
}

func TestResolveKeyRotation(t *testing.T) {
	docA, _ := jwksDocument(t, "old-kid")
	docB, _ := jwksDocument(t, "new-kid")

	var mu sync.Mutex
	current := docA

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewEncoder(w).Encode(current)
	}))
	defer srv.Close()

	store := newTestStore(srv, time.Nanosecond)

	_, err := store.Resolve(context.Background(), "old-kid")
	require.NoError(t, err)

	// Provider rotates keys. The unknown kid triggers a refresh which
	// atomically replaces the whole set.
	mu.Lock()
	current = docB
	mu.Unlock()

	_, err = store.Resolve(context.Background(), "new-kid")
	require.NoError(t, err)

	// The rotated-out key was superseded by the full replacement.
	_, err = store.Resolve(context.Background(), "old-kid")
	require.ErrorIs(t, err, ErrNoKey)
}

func TestRefreshSingleFlight(t *testing.T) {
	doc, _ := jwksDocument(t, "kid-1")
	var fetches atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		time.Sleep(50 * time.Millisecond) // hold the fetch open
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer srv.Close()

	store := newTestStore(srv, time.Minute)

	const callers = 16
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Resolve(context.Background(), "kid-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// All concurrent missers shared one in-flight JWKS request.
	require.EqualValues(t, 1, fetches.Load())
}

func TestFetchFailureIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newTestStore(srv, time.Nanosecond)

	_, err := store.Resolve(context.Background(), "kid-1")
	require.ErrorIs(t, err, ErrUpstream)
	require.NotErrorIs(t, err, ErrNoKey)
}

func TestOutageStaysUpstreamErrorInsideGateWindow(t *testing.T) {
	var fetches atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newTestStore(srv, time.Minute)

	_, err := store.Resolve(context.Background(), "kid-1")
	require.ErrorIs(t, err, ErrUpstream)
	fetched := fetches.Load()

	// The gate holds the failed fetch's outcome: a miss inside the window
	// reports the outage, not a missing key, and does not re-fetch.
	_, err = store.Resolve(context.Background(), "kid-1")
	require.ErrorIs(t, err, ErrUpstream)
	require.NotErrorIs(t, err, ErrNoKey)
	require.Equal(t, fetched, fetches.Load())
}

func TestCancelledWaiterDoesNotAbortSharedFetch(t *testing.T) {
	doc, _ := jwksDocument(t, "kid-1")
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer srv.Close()

	store := newTestStore(srv, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := store.Resolve(ctx, "kid-1")
		errCh <- err
	}()

	// Second waiter joins the same fetch with a live context.
	okCh := make(chan error, 1)
	go func() {
		_, err := store.Resolve(context.Background(), "kid-1")
		okCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// The cancelled caller abandoned its continuation, but the fetch
	// completes and the surviving waiter gets the key.
	close(release)
	require.NoError(t, <-okCh)
}
