package gateway

import "sync"

// CredentialStore holds the resident session's current credential pair, the
// gateway-side analogue of the browser's cookie jar. The refresh scheduler
// reads from it between requests, the refresh and logout handlers write it.
type CredentialStore struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// Set replaces the credential pair.
func (c *CredentialStore) Set(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
	c.refreshToken = refreshToken
}

// Clear drops both credentials. Clearing an empty store is a no-op.
func (c *CredentialStore) Clear() {
	c.Set("", "")
}

// AccessToken returns the current access token, empty when logged out.
func (c *CredentialStore) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// RefreshToken returns the current refresh token, empty when logged out.
func (c *CredentialStore) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshToken
}
