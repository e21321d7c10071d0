// Package repo defines the persistence contract shared by every backing store
// and selects the store for a given configuration.
package repo

import (
	"context"

	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/domain/user"
)

// Store is implemented by the memory, SQLite, MySQL and PostgreSQL stores.
// Every todo operation is scoped by the owning user id; an item owned by
// someone else is reported exactly like a missing one.
type Store interface {
	Init(ctx context.Context) error
	Teardown(ctx context.Context) error
	Ping(ctx context.Context) error

	GetItems(ctx context.Context, userID string) ([]todo.Item, error)
	GetItem(ctx context.Context, id, userID string) (todo.Item, error)
	StoreItem(ctx context.Context, item todo.Item) error
	UpdateItem(ctx context.Context, id, userID string, patch todo.Patch) error
	RemoveItem(ctx context.Context, id, userID string) (bool, error)

	CreateUser(ctx context.Context, u user.User) error
	FindUserByEmail(ctx context.Context, email string) (user.User, error)
	FindUserByID(ctx context.Context, id string) (user.User, error)
	UpdateUser(ctx context.Context, id string, fields user.Fields) error
	DeleteUser(ctx context.Context, id string) error
	GetAllUserData(ctx context.Context, userID string) (user.Data, error)
}
