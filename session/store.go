// Package session holds credentials captured during MCP connection handshakes.
package session

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store maps session IDs to the credential supplied at handshake. It is safe
// for concurrent use. Entries are written once per session and dropped when
// the session disconnects or outlives the TTL. A full store refuses new
// sessions rather than evicting a live one.
type Store struct {
	mu         sync.Mutex
	maxEntries int
	entries    *expirable.LRU[string, string]
}

// NewStore creates a store accepting at most maxEntries sessions; zero or
// less means unbounded. A ttl of zero disables expiry.
func NewStore(maxEntries int, ttl time.Duration) *Store {
	if maxEntries < 0 {
		maxEntries = 0
	}
	// The LRU itself is unbounded so it never evicts on size.
	return &Store{maxEntries: maxEntries, entries: expirable.NewLRU[string, string](0, nil, ttl)}
}

// Put records the credential for sessionID. Empty IDs or credentials are
// ignored so a handshake without a credential never creates a session entry.
// It returns false without storing when the store is full and sessionID is new.
func (s *Store) Put(sessionID, credential string) bool {
	if sessionID == "" || credential == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxEntries > 0 && !s.entries.Contains(sessionID) && s.entries.Len() >= s.maxEntries {
		return false
	}
	s.entries.Add(sessionID, credential)
	return true
}

// Get returns the credential for sessionID without touching its recency.
func (s *Store) Get(sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}
	return s.entries.Peek(sessionID)
}

// Drop forgets sessionID.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.Remove(sessionID)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	return s.entries.Len()
}
