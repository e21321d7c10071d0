package user

import (
	"errors"
	"time"

	"github.com/geocoder89/todolist/internal/domain/todo"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

// isoLayout matches JavaScript's Date.toISOString, which the frontend already parses.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash, never exposed
	CreatedAt time.Time `json:"created_at"`
}

// PublicUser is the only user shape ever written to a client.
type PublicUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: FormatTime(u.CreatedAt),
	}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Fields is a partial profile update; nil pointers are left untouched.
type Fields struct {
	Name     *string
	Email    *string
	Password *string
}

func (f Fields) Empty() bool {
	return f.Name == nil && f.Email == nil && f.Password == nil
}

// Data is everything the service holds about one user.
type Data struct {
	User  PublicUser  `json:"user"`
	Todos []todo.Item `json:"todos"`
}
