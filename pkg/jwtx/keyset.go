package jwtx

import (
	"context"
	"crypto/rsa"
	"sync"
)

// KeyResolver looks up the public signing key for a key id. The verifier is
// written against this interface so tests can inject deterministic key sets
// while production uses the remote JWKS-backed store.
type KeyResolver interface {
	Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// KeySet holds RSA verification keys in memory, keyed by kid.
// It's thread-safe: the HTTP handlers read from it concurrently while the
// key store swaps it wholesale on a JWKS refresh.
type KeySet struct {
	mu  sync.RWMutex
	pub map[string]*rsa.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{
		pub: make(map[string]*rsa.PublicKey),
	}
}

// AddJWK adds a single JWK to the KeySet.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := parseJWKToKey(j)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[j.Kid] = key
	return nil
}

// Get returns the public key for the given kid.
func (k *KeySet) Get(kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// Resolve implements KeyResolver over the in-memory set.
func (k *KeySet) Resolve(_ context.Context, kid string) (*rsa.PublicKey, error) {
	return k.Get(kid)
}

// Len reports the number of keys currently loaded.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub)
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	return k.Len() > 0
}

// ResetFromJWKS atomically replaces all keys from a JWKS document. Readers
// observe either the pre-refresh or the post-refresh set, never a partially
// updated one. A document that fails to parse leaves the set untouched.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	newMap := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, j := range jwks.Keys {
		key, err := parseJWKToKey(j)
		if err != nil {
			return err
		}
		newMap[j.Kid] = key
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = newMap

	return nil
}
