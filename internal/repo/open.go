package repo

import (
	"fmt"

	"github.com/geocoder89/todolist/internal/config"
	"github.com/geocoder89/todolist/internal/observability"
	"github.com/geocoder89/todolist/internal/repo/memory"
	"github.com/geocoder89/todolist/internal/repo/mysql"
	"github.com/geocoder89/todolist/internal/repo/postgres"
	"github.com/geocoder89/todolist/internal/repo/sqlite"
)

// Open builds, but does not initialise, the store named by cfg.Driver.
func Open(cfg config.StoreConfig, prom *observability.Prom) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.New(cfg.SQLite, prom), nil
	case config.DriverMySQL:
		s, err := mysql.New(cfg.MySQL, prom)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.New(cfg.Postgres, prom)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*mysql.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)
