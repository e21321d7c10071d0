package observability

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"pg unique", &pgconn.PgError{Code: "23505"}, "unique_violation"},
		{"pg wrapped", fmt.Errorf("create user: %w", &pgconn.PgError{Code: "40P01"}), "deadlock"},
		{"pg other", &pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, "unique_violation"},
		{"mysql other", &mysql.MySQLError{Number: 1146}, "mysql_1146"},
		{"timeout", errors.New("context deadline exceeded"), "timeout"},
		{"connection", errors.New("connection refused"), "connection"},
		{"unknown", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDBErr(tt.err); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObserveDB(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("sqlite", "items.get", func() error { return nil })
	err := p.ObserveDB("sqlite", "users.create", func() error { return &mysql.MySQLError{Number: 1062} })

	if err == nil {
		t.Fatalf("ObserveDB must return fn's error")
	}

	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("sqlite", "users.create", "unique_violation")); got != 1 {
		t.Fatalf("got %v unique violations, want 1", got)
	}
}

func TestObserveDBNoRowsIsNotAnError(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("sqlite", "users.find_by_email", func() error {
		return fmt.Errorf("find user: %w", sql.ErrNoRows)
	})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("ObserveDB must return fn's error, got %v", err)
	}
	_ = p.ObserveDB("postgres", "items.get", func() error { return pgx.ErrNoRows })

	if got := testutil.CollectAndCount(p.DbErrorsTotal); got != 0 {
		t.Fatalf("got %d error series, want none", got)
	}

	if got := testutil.CollectAndCount(p.DbQueryDuration); got != 2 {
		t.Fatalf("got %d duration series, want 2", got)
	}
}

func TestObserveDBNilProm(t *testing.T) {
	var p *Prom

	called := false
	if err := p.ObserveDB("memory", "op", func() error { called = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !called {
		t.Fatalf("fn should still run without metrics")
	}
}
