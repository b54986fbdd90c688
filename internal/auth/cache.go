package auth

import (
	"sync"
	"time"
)

// TokenCache is the single in-memory slot holding the active credential.
// Expiry is checked at read time; there is no background eviction.
type TokenCache struct {
	mu   sync.RWMutex
	cred *Credential
	now  func() time.Time
}

// NewTokenCache creates an empty cache using the wall clock
func NewTokenCache() *TokenCache {
	return &TokenCache{now: time.Now}
}

// Get returns the cached credential if it has not expired
func (c *TokenCache) Get() (Credential, bool) {
	c.mu.RLock()
	cred := c.cred
	c.mu.RUnlock()

	if cred == nil || !cred.ValidAt(c.now()) {
		return Credential{}, false
	}
	return *cred, true
}

// Set replaces the cached credential. Offline credentials are ignored.
func (c *TokenCache) Set(cred Credential) {
	if cred.IsOffline() {
		return
	}

	stored := cred
	c.mu.Lock()
	c.cred = &stored
	c.mu.Unlock()
}

// Invalidate clears the slot if it still holds value (e.g. after an upstream 401).
// A slot already replaced by a newer credential is left alone.
func (c *TokenCache) Invalidate(value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cred == nil || c.cred.Value != value {
		return false
	}
	c.cred = nil
	return true
}
