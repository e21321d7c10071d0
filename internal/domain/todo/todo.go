package todo

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound covers both a missing id and an id owned by someone else.
var ErrNotFound = errors.New("todo item not found")

type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	UserID    string `json:"user_id"`
}

// Patch carries the full replacement values for an update.
type Patch struct {
	Name      string
	Completed bool
}

func New(name, userID string) Item {
	return Item{
		ID:        uuid.NewString(),
		Name:      name,
		Completed: false,
		UserID:    userID,
	}
}
