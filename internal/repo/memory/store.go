// Package memory is a map-backed Store for tests and local development.
package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/domain/user"
)

type Store struct {
	mu    sync.RWMutex
	items []todo.Item // insertion order
	users map[string]user.User
}

func New() *Store {
	return &Store{
		users: make(map[string]user.User),
	}
}

func (s *Store) Init(ctx context.Context) error     { return nil }
func (s *Store) Teardown(ctx context.Context) error { return nil }
func (s *Store) Ping(ctx context.Context) error     { return nil }

func (s *Store) GetItems(ctx context.Context, userID string) ([]todo.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]todo.Item, 0)
	for _, it := range s.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *Store) GetItem(ctx context.Context, id, userID string) (todo.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id, userID); i >= 0 {
		return s.items[i], nil
	}
	return todo.Item{}, todo.ErrNotFound
}

func (s *Store) StoreItem(ctx context.Context, item todo.Item) error {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()

	return nil
}

func (s *Store) UpdateItem(ctx context.Context, id, userID string, patch todo.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id, userID); i >= 0 {
		s.items[i].Name = patch.Name
		s.items[i].Completed = patch.Completed
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id, userID)
	if i < 0 {
		return false, nil
	}

	s.items = append(s.items[:i], s.items[i+1:]...)
	return true, nil
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id, userID string) int {
	for i, it := range s.items {
		if it.ID == id && it.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(u.Email, "") {
		return user.ErrEmailTaken
	}

	s.users[u.ID] = u
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *Store) FindUserByID(ctx context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, fields user.Fields) error {
	if fields.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil
	}

	if fields.Email != nil && s.emailTaken(*fields.Email, id) {
		return user.ErrEmailTaken
	}

	if fields.Name != nil {
		u.Name = *fields.Name
	}
	if fields.Email != nil {
		u.Email = *fields.Email
	}
	if fields.Password != nil {
		u.Password = *fields.Password
	}

	s.users[id] = u
	return nil
}

// emailTaken must be called with mu held; exceptID is ignored in the check.
func (s *Store) emailTaken(email, exceptID string) bool {
	for id, u := range s.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, id)

	kept := s.items[:0]
	for _, it := range s.items {
		if it.UserID != id {
			kept = append(kept, it)
		}
	}
	s.items = kept

	return nil
}

func (s *Store) GetAllUserData(ctx context.Context, userID string) (user.Data, error) {
	u, err := s.FindUserByID(ctx, userID)
	if err != nil {
		return user.Data{}, err
	}

	items, err := s.GetItems(ctx, userID)
	if err != nil {
		return user.Data{}, err
	}

	return user.Data{User: u.Public(), Todos: items}, nil
}
