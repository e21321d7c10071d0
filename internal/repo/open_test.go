package repo_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/geocoder89/todolist/internal/config"
	"github.com/geocoder89/todolist/internal/repo"
	"github.com/geocoder89/todolist/internal/repo/memory"
	"github.com/geocoder89/todolist/internal/repo/sqlite"
)

func TestOpenSelectsStore(t *testing.T) {
	s, err := repo.Open(config.StoreConfig{Driver: config.DriverMemory}, nil)
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := s.(*memory.Store); !ok {
		t.Fatalf("got %T, want *memory.Store", s)
	}

	s, err = repo.Open(config.StoreConfig{
		Driver: config.DriverSQLite,
		SQLite: config.SQLiteConfig{Location: filepath.Join(t.TempDir(), "todo.db")},
	}, nil)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	if _, ok := s.(*sqlite.Store); !ok {
		t.Fatalf("got %T, want *sqlite.Store", s)
	}
}

func TestOpenFailsFastOnMissingCredentials(t *testing.T) {
	_, err := repo.Open(config.StoreConfig{
		Driver: config.DriverMySQL,
		MySQL:  config.MySQLConfig{Host: "db", User: "todo"},
	}, nil)
	if !errors.Is(err, config.ErrMissingConfig) {
		t.Fatalf("got %v, want ErrMissingConfig", err)
	}

	_, err = repo.Open(config.StoreConfig{Driver: config.DriverPostgres}, nil)
	if !errors.Is(err, config.ErrMissingConfig) {
		t.Fatalf("got %v, want ErrMissingConfig", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := repo.Open(config.StoreConfig{Driver: "oracle"}, nil); err == nil {
		t.Fatalf("expected error")
	}
}
