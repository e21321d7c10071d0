// Package sqlite is the default durable store, backed by a single file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/geocoder89/todolist/internal/config"
	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/domain/user"
	"github.com/geocoder89/todolist/internal/observability"

	_ "modernc.org/sqlite"
)

const driver = "sqlite"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS todo_items (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		user_id   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		password   TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
}

type Store struct {
	location string
	prom     *observability.Prom
	db       *sql.DB
}

func New(cfg config.SQLiteConfig, prom *observability.Prom) *Store {
	return &Store{location: cfg.Location, prom: prom}
}

func (s *Store) Init(ctx context.Context) error {
	if s.db == nil {
		if s.location != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(s.location), 0o755); err != nil {
				return fmt.Errorf("sqlite: create data dir: %w", err)
			}
		}

		db, err := sql.Open(driver, s.location)
		if err != nil {
			return fmt.Errorf("sqlite: open: %w", err)
		}
		// one writer, and ":memory:" is per connection
		db.SetMaxOpenConns(1)
		s.db = db
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: create schema: %w", err)
		}
	}

	if err := s.migrateUserID(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_todo_items_user_id ON todo_items(user_id)`); err != nil {
		return fmt.Errorf("sqlite: create index: %w", err)
	}

	return nil
}

// migrateUserID adds the owner column to tables created before accounts existed.
func (s *Store) migrateUserID(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(todo_items)`)
	if err != nil {
		return fmt.Errorf("sqlite: inspect todo_items: %w", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("sqlite: inspect todo_items: %w", err)
		}
		if name == "user_id" {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	if found {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `ALTER TABLE todo_items ADD COLUMN user_id TEXT`); err != nil {
		return fmt.Errorf("sqlite: add user_id: %w", err)
	}
	return nil
}

func (s *Store) Teardown(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("sqlite: not initialised")
	}
	return s.db.PingContext(ctx)
}

func (s *Store) observe(op string, fn func() error) error {
	return s.prom.ObserveDB(driver, op, fn)
}

func (s *Store) GetItems(ctx context.Context, userID string) ([]todo.Item, error) {
	items := make([]todo.Item, 0)

	err := s.observe("get_items", func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, name, completed, user_id FROM todo_items WHERE user_id = ? ORDER BY rowid`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				return err
			}
			items = append(items, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: get items: %w", err)
	}

	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (todo.Item, error) {
	var (
		it        todo.Item
		completed int
	)
	if err := row.Scan(&it.ID, &it.Name, &completed, &it.UserID); err != nil {
		return todo.Item{}, err
	}
	it.Completed = completed == 1
	return it, nil
}

func (s *Store) GetItem(ctx context.Context, id, userID string) (todo.Item, error) {
	var it todo.Item

	err := s.observe("get_item", func() error {
		var err error
		it, err = scanItem(s.db.QueryRowContext(ctx,
			`SELECT id, name, completed, user_id FROM todo_items WHERE id = ? AND user_id = ?`, id, userID))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return todo.Item{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.Item{}, fmt.Errorf("sqlite: get item: %w", err)
	}

	return it, nil
}

func (s *Store) StoreItem(ctx context.Context, item todo.Item) error {
	err := s.observe("store_item", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO todo_items (id, name, completed, user_id) VALUES (?, ?, ?, ?)`,
			item.ID, item.Name, boolToInt(item.Completed), item.UserID)
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: store item: %w", err)
	}
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, id, userID string, patch todo.Patch) error {
	err := s.observe("update_item", func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE todo_items SET name = ?, completed = ? WHERE id = ? AND user_id = ?`,
			patch.Name, boolToInt(patch.Completed), id, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: update item: %w", err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, id, userID string) (bool, error) {
	var n int64

	err := s.observe("remove_item", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM todo_items WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("sqlite: remove item: %w", err)
	}

	return n > 0, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	err := s.observe("create_user", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (id, name, email, password, created_at) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.Password, u.CreatedAt.Unix())
		return err
	})
	if isUnique(err) {
		return user.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("sqlite: create user: %w", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, op, where string, arg string) (user.User, error) {
	var (
		u       user.User
		created int64
	)

	err := s.observe(op, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT id, name, email, password, created_at FROM users WHERE `+where+` = ?`, arg,
		).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &created)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("sqlite: %s: %w", op, err)
	}

	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.findUser(ctx, "find_user_by_email", "email", email)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (user.User, error) {
	return s.findUser(ctx, "find_user_by_id", "id", id)
}

func (s *Store) UpdateUser(ctx context.Context, id string, fields user.Fields) error {
	if fields.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if fields.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *fields.Name)
	}
	if fields.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *fields.Email)
	}
	if fields.Password != nil {
		sets = append(sets, "password = ?")
		args = append(args, *fields.Password)
	}
	args = append(args, id)

	err := s.observe("update_user", func() error {
		_, err := s.db.ExecContext(ctx,
			`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		return err
	})
	if isUnique(err) {
		return user.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("sqlite: update user: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	err := s.observe("delete_user", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM todo_items WHERE user_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("sqlite: delete user: %w", err)
	}
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUnique(err error) bool {
	return observability.IsUniqueViolation(err) ||
		(err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"))
}
