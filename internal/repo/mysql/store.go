// Package mysql is the networked durable store for MySQL and MariaDB.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/todolist/internal/config"
	"github.com/geocoder89/todolist/internal/domain/todo"
	"github.com/geocoder89/todolist/internal/domain/user"
	"github.com/geocoder89/todolist/internal/observability"
	gomysql "github.com/go-sql-driver/mysql"
)

const driver = "mysql"

// waitTimeout bounds how long Init waits for the server to accept connections.
const waitTimeout = 10 * time.Second

var schema = []string{
	`CREATE TABLE IF NOT EXISTS todo_items (
		id        VARCHAR(36) PRIMARY KEY,
		name      VARCHAR(255) NOT NULL,
		completed TINYINT(1) NOT NULL DEFAULT 0,
		user_id   VARCHAR(36)
	) DEFAULT CHARSET utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id         VARCHAR(36) PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		email      VARCHAR(255) NOT NULL UNIQUE,
		password   VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL
	) DEFAULT CHARSET utf8mb4`,
}

type Store struct {
	dsn  string
	prom *observability.Prom
	db   *sql.DB
}

// New validates cfg and prepares a store. No connection is made until Init.
func New(cfg config.MySQLConfig, prom *observability.Prom) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dc := gomysql.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dc.DBName = cfg.Database

	return newFromDSN(dc.FormatDSN(), prom)
}

func newFromDSN(dsn string, prom *observability.Prom) (*Store, error) {
	dc, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: parse dsn: %w", err)
	}

	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Collation = "utf8mb4_unicode_ci"

	return &Store{dsn: dc.FormatDSN(), prom: prom}, nil
}

func (s *Store) Init(ctx context.Context) error {
	if s.db == nil {
		db, err := sql.Open(driver, s.dsn)
		if err != nil {
			return fmt.Errorf("mysql: open: %w", err)
		}
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

		if err := waitForServer(ctx, db); err != nil {
			_ = db.Close()
			return err
		}
		s.db = db
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: create schema: %w", err)
		}
	}

	return s.migrate(ctx)
}

func waitForServer(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()

	var err error
	for {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("mysql: server not reachable: %w", err)
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// migrate adds the owner column and its index to tables that predate accounts.
// MySQL has no ADD COLUMN IF NOT EXISTS, so information_schema is consulted.
func (s *Store) migrate(ctx context.Context) error {
	var n int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.COLUMNS
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'todo_items' AND COLUMN_NAME = 'user_id'`,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("mysql: inspect columns: %w", err)
	}
	if n == 0 {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE todo_items ADD COLUMN user_id VARCHAR(36)`); err != nil {
			return fmt.Errorf("mysql: add user_id: %w", err)
		}
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.STATISTICS
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'todo_items' AND INDEX_NAME = 'idx_todo_items_user_id'`,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("mysql: inspect indexes: %w", err)
	}
	if n == 0 {
		if _, err := s.db.ExecContext(ctx, `CREATE INDEX idx_todo_items_user_id ON todo_items(user_id)`); err != nil {
			return fmt.Errorf("mysql: create index: %w", err)
		}
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
		return errors.New("mysql: not initialised")
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
			`SELECT id, name, completed, user_id FROM todo_items WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				it        todo.Item
				completed int
			)
			if err := rows.Scan(&it.ID, &it.Name, &completed, &it.UserID); err != nil {
				return err
			}
			it.Completed = completed == 1
			items = append(items, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("mysql: get items: %w", err)
	}

	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id, userID string) (todo.Item, error) {
	var (
		it        todo.Item
		completed int
	)

	err := s.observe("get_item", func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT id, name, completed, user_id FROM todo_items WHERE id = ? AND user_id = ?`, id, userID,
		).Scan(&it.ID, &it.Name, &completed, &it.UserID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return todo.Item{}, todo.ErrNotFound
	}
	if err != nil {
		return todo.Item{}, fmt.Errorf("mysql: get item: %w", err)
	}

	it.Completed = completed == 1
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
		return fmt.Errorf("mysql: store item: %w", err)
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
		return fmt.Errorf("mysql: update item: %w", err)
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
		return false, fmt.Errorf("mysql: remove item: %w", err)
	}

	return n > 0, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	err := s.observe("create_user", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (id, name, email, password, created_at) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.Password, u.CreatedAt.UTC())
		return err
	})
	if observability.IsUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("mysql: create user: %w", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, op, column, arg string) (user.User, error) {
	var u user.User

	err := s.observe(op, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT id, name, email, password, created_at FROM users WHERE `+column+` = ?`, arg,
		).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.CreatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("mysql: %s: %w", op, err)
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
	if observability.IsUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("mysql: update user: %w", err)
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
		return fmt.Errorf("mysql: delete user: %w", err)
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
