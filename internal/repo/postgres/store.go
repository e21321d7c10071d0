// Package postgres is the PostgreSQL store, built on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/todolist/internal/config"
	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/domain/user"
	"github.com/geocoder89/todolist/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const driver = "postgres"

const waitTimeout = 10 * time.Second

var schema = []string{
	`CREATE TABLE IF NOT EXISTS todo_items (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		completed SMALLINT NOT NULL DEFAULT 0
	)`,
	`ALTER TABLE todo_items ADD COLUMN IF NOT EXISTS user_id TEXT`,
	`CREATE INDEX IF NOT EXISTS idx_todo_items_user_id ON todo_items(user_id)`,
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL UNIQUE,
		password   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

type Store struct {
	connString string
	prom       *observability.Prom
	pool       *pgxpool.Pool
}

// New validates cfg and prepares a store. The pool is created by Init.
func New(cfg config.PostgresConfig, prom *observability.Prom) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}

	return &Store{connString: u.String(), prom: prom}, nil
}

func (s *Store) Init(ctx context.Context) error {
	if s.pool == nil {
		pool, err := newPool(ctx, s.connString)
		if err != nil {
			return err
		}
		s.pool = pool
	}

	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: create schema: %w", err)
		}
	}

	return nil
}

// newPool connects and retries the ping until the server answers or
// waitTimeout passes.
func newPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	cfg.MaxConns = 5

	ctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}

	for {
		if err = pool.Ping(ctx); err == nil {
			return pool, nil
		}

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("postgres: server not reachable: %w", err)
		case <-time.After(250 * time.Millisecond):
		}
	}
}

func (s *Store) Teardown(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres: not initialised")
	}
	return s.pool.Ping(ctx)
}

func (s *Store) observe(op string, fn func() error) error {
	return s.prom.ObserveDB(driver, op, fn)
}

func (s *Store) GetItems(ctx context.Context, userID string) ([]todo.Item, error) {
	items := make([]todo.Item, 0)

	err := s.observe("get_items", func() error {
		rows, err := s.pool.Query(ctx,
			`SELECT id, name, completed, user_id FROM todo_items WHERE user_id = $1`, userID)
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
		return nil, fmt.Errorf("postgres: get items: %w", err)
	}

	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id, userID string) (todo.Item, error) {
	var it todo.Item

	err := s.observe("get_item", func() error {
		var err error
		it, err = scanItem(s.pool.QueryRow(ctx,
			`SELECT id, name, completed, user_id FROM todo_items WHERE id = $1 AND user_id = $2`, id, userID,
		))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return todo.Item{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.Item{}, fmt.Errorf("postgres: get item: %w", err)
	}

	return it, nil
}

func (s *Store) StoreItem(ctx context.Context, item todo.Item) error {
	err := s.observe("store_item", func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO todo_items (id, name, completed, user_id) VALUES ($1, $2, $3, $4)`,
			item.ID, item.Name, boolToSmallint(item.Completed), item.UserID)
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres: store item: %w", err)
	}
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, id, userID string, patch todo.Patch) error {
	err := s.observe("update_item", func() error {
		_, err := s.pool.Exec(ctx,
			`UPDATE todo_items SET name = $1, completed = $2 WHERE id = $3 AND user_id = $4`,
			patch.Name, boolToSmallint(patch.Completed), id, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres: update item: %w", err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, id, userID string) (bool, error) {
	var removed bool

	err := s.observe("remove_item", func() error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM todo_items WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("postgres: remove item: %w", err)
	}

	return removed, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	err := s.observe("create_user", func() error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, password, created_at) VALUES ($1, $2, $3, $4, $5)`,
			u.ID, u.Name, u.Email, u.Password, u.CreatedAt)
		return err
	})
	if observability.IsUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("postgres: create user: %w", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, op, column, arg string) (user.User, error) {
	var u user.User

	err := s.observe(op, func() error {
		return s.pool.QueryRow(ctx,
			`SELECT id, name, email, password, created_at FROM users WHERE `+column+` = $1`, arg,
		).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.CreatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("postgres: %s: %w", op, err)
	}

	u.CreatedAt = u.CreatedAt.UTC()
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
	add := func(column, value string) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.Email != nil {
		add("email", *fields.Email)
	}
	if fields.Password != nil {
		add("password", *fields.Password)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	err := s.observe("update_user", func() error {
		_, err := s.pool.Exec(ctx, query, args...)
		return err
	})
	if observability.IsUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("postgres: update user: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	err := s.observe("delete_user", func() error {
		return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `DELETE FROM todo_items WHERE user_id = $1`, id); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("postgres: delete user: %w", err)
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

// completed is stored as 0/1, like the other SQL stores.
func scanItem(row pgx.Row) (todo.Item, error) {
	var (
		it        todo.Item
		completed int16
	)
	if err := row.Scan(&it.ID, &it.Name, &completed, &it.UserID); err != nil {
		return todo.Item{}, err
	}
	it.Completed = completed == 1
	return it, nil
}

func boolToSmallint(b bool) int16 {
	if b {
		return 1
	}
	return 0
}
