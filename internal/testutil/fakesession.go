package testutil

import (
	"context"
	"sync"

	"todosync/internal/identity"
	"todosync/internal/service"
)

// FakeSession is an in-memory identity.Session for testing.
type FakeSession struct {
	mu      sync.Mutex
	current *identity.Identity
	token   string
	subs    map[int]func(*identity.Identity)
	nextSub int

	// TokenErr, when set, is returned from Token.
	TokenErr error
}

// NewFakeSession creates a session. A nil identity means signed out.
func NewFakeSession(ident *identity.Identity, token string) *FakeSession {
	return &FakeSession{
		current: ident,
		token:   token,
		subs:    make(map[int]func(*identity.Identity)),
	}
}

// Subscribe implements identity.Session with synchronous initial replay.
func (s *FakeSession) Subscribe(fn func(*identity.Identity)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Current implements identity.Session.
func (s *FakeSession) Current() *identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Token implements identity.Session.
func (s *FakeSession) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if s.TokenErr != nil {
		return "", s.TokenErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", service.Errf(service.KindUnauthorized, "not logged in")
	}
	return s.token, nil
}

// SwitchTo changes the active identity and notifies subscribers.
func (s *FakeSession) SwitchTo(ident *identity.Identity, token string) {
	s.mu.Lock()
	s.current = ident
	s.token = token
	subs := make([]func(*identity.Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ident)
	}
}
