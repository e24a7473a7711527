package rest

import "sync"

// TokenStore is an in-memory credential store shared between the REST client
// and the realtime client. It implements chatwire.TokenSource. Safe for
// concurrent use.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Token returns the stored bearer token, or "" when logged out.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the stored token, typically after Login or Register.
func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
