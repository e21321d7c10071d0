package client

import (
	"sync"

	"github.com/geocoder89/todolist/internal/domain/user"
)

// Session is the client-side login state: the bearer token and the user it
// was issued for.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *user.PublicUser
}

func (s *Session) Set(token string, u user.PublicUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = &u
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// User returns the logged-in user, if any.
func (s *Session) User() (user.PublicUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return user.PublicUser{}, false
	}
	return *s.user, true
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

func (s *Session) setUser(u user.PublicUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		s.user = &u
	}
}
