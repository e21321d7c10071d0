package user

import (
	"time"

	"github.com/google/uuid"
)

// New builds a user with a fresh id. CreatedAt is truncated to whole seconds,
// the finest precision every store keeps.
func New(name, email, passwordHash string) User {
	return User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Password:  passwordHash,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}
