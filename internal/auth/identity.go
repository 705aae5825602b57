package auth

import (
	"sync"

	"newsloop/internal/model"

	"github.com/google/uuid"
)

// Identity exposes the current authenticated user, if any. The aggregator
// and projector read it at every mutation and isLiked recompute; injecting
// it keeps tests deterministic with fake identities.
type Identity interface {
	CurrentUser() (model.User, bool)
}

// Static is a fixed identity, used by the CLI (user from config) and by
// tests.
type Static struct {
	User model.User
}

func (s Static) CurrentUser() (model.User, bool) {
	if s.User.ID == "" {
		return model.User{}, false
	}
	return s.User, true
}

// Anonymous is the signed-out identity.
type Anonymous struct{}

func (Anonymous) CurrentUser() (model.User, bool) { return model.User{}, false }

// Sessions maps bearer tokens to users for the HTTP surface.
type Sessions struct {
	mu      sync.Mutex
	byToken map[string]model.User
}

func NewSessions() *Sessions {
	return &Sessions{byToken: make(map[string]model.User)}
}

// Create registers a user and returns a fresh token.
func (s *Sessions) Create(user model.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.New().String()
	s.byToken[token] = user
	return token
}

// Resolve returns the identity behind a token; an unknown or empty token
// resolves to Anonymous.
func (s *Sessions) Resolve(token string) Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byToken[token]
	if !ok {
		return Anonymous{}
	}
	return Static{User: user}
}

// Revoke removes a token and immediately deletes the session.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byToken, token)
}
