// Package session tracks the user the messenger is logged in as.
package session

import "sync"

// CurrentUser reports the id of the logged-in user, or "" when nobody is.
type CurrentUser interface {
	CurrentUser() string
}

// Store is a concurrency-safe CurrentUser that can be updated on login and logout.
type Store struct {
	mu     sync.RWMutex
	userID string
}

// NewStore returns a store already holding userID ("" for logged out).
func NewStore(userID string) *Store {
	return &Store{userID: userID}
}

func (s *Store) CurrentUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Login records userID as the current user.
func (s *Store) Login(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

// Logout clears the current user.
func (s *Store) Logout() {
	s.Login("")
}

// Static is a fixed CurrentUser.
type Static string

func (s Static) CurrentUser() string { return string(s) }
