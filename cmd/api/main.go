package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/todolist/internal/auth"
	"github.com/geocoder89/todolist/internal/config"
	httpx "github.com/geocoder89/todolist/internal/http"
	"github.com/geocoder89/todolist/internal/observability"
	"github.com/geocoder89/todolist/internal/ratelimit"
	"github.com/geocoder89/todolist/internal/redisclient"
	"github.com/geocoder89/todolist/internal/repo"
	"github.com/geocoder89/todolist/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "todolist-api"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	hasher, err := security.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}

	store, err := repo.Open(cfg.Store, prom)
	if err != nil {
		return err
	}

	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init %s store: %w", cfg.Store.Driver, err)
	}
	log.Info("store ready", "driver", cfg.Store.Driver)

	authLimiter, accountLimiter, closeLimiters := newLimiters(ctx, cfg, log)
	defer closeLimiters()

	router := httpx.NewRouter(httpx.Deps{
		Log:            log,
		ServiceName:    serviceName,
		Store:          store,
		Tokens:         auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Hasher:         hasher,
		Prom:           prom,
		Gatherer:       reg,
		AuthLimiter:    authLimiter,
		AccountLimiter: accountLimiter,
		CORSOrigins:    cfg.CORSOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("server failed", "err", err)
		}
	case <-ctx.Done():
		log.Info("server shutting down")
	}

	// Graceful shutdown
	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	// teardown is best effort; the process exits either way
	teardownCtx, cancelTeardown := config.WithTimeout(5 * time.Second)
	defer cancelTeardown()

	if err := store.Teardown(teardownCtx); err != nil {
		log.Error("store teardown failed", "err", err)
	}

	if err := shutdownTracer(teardownCtx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
	return nil
}

// newLimiters uses Redis when REDIS_ADDR is set so that limits hold across
// replicas, and in-process limiters otherwise.
func newLimiters(ctx context.Context, cfg config.Config, log *slog.Logger) (authL, accountL ratelimit.Limiter, closeFn func()) {
	rl := cfg.RateLimit

	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryLimiter(rl.AuthLimit, rl.Window),
			ratelimit.NewMemoryLimiter(rl.AccountLimit, rl.Window),
			func() {}
	}

	rc := redisclient.New(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rc.Ping(pingCtx); err != nil {
		// limiter fails open per request, so keep going
		log.Warn("redis unreachable at startup", "addr", cfg.Redis.Addr, "err", err)
	}

	return ratelimit.NewRedisLimiter(rc.Raw(), rl.AuthLimit, rl.Window),
		ratelimit.NewRedisLimiter(rc.Raw(), rl.AccountLimit, rl.Window),
		func() { _ = rc.Close() }
}
