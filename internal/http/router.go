package http

import (
	"log/slog"

	"github.com/geocoder89/todolist/internal/http/handlers"
	"github.com/geocoder89/todolist/internal/http/middlewares"
	"github.com/geocoder89/todolist/internal/observability"
	"github.com/geocoder89/todolist/internal/ratelimit"
	"github.com/geocoder89/todolist/internal/repo"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Log         *slog.Logger
	ServiceName string

	Store  repo.Store
	Tokens interface {
		handlers.TokenIssuer
		middlewares.TokenVerifier
	}
	Hasher handlers.PasswordHasher

	// optional
	Prom        *observability.Prom
	Gatherer    prometheus.Gatherer
	AuthLimiter ratelimit.Limiter
	// AccountLimiter guards the routes that re-check the password.
	AccountLimiter ratelimit.Limiter

	CORSOrigins  []string
	MaxBodyBytes int64
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	if d.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	}

	// health
	health := handlers.NewHealthHandler(d.Store)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authMw := middlewares.NewAuthMiddleware(d.Tokens)
	authH := handlers.NewAuthHandler(d.Store, d.Hasher, d.Tokens, d.Prom)
	meH := handlers.NewMeHandler(d.Store, d.Hasher)
	itemsH := handlers.NewItemsHandler(d.Store)

	api := r.Group("/api")
	api.GET("/greeting", handlers.Greeting)

	authGroup := api.Group("/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(middlewares.RateLimit(d.AuthLimiter, middlewares.KeyByIP))
	}
	authGroup.Use(middlewares.RequireJSON())
	authGroup.POST("/register", authH.Register)
	authGroup.POST("/login", authH.Login)

	// authentication first, so anonymous callers always see 401
	protected := api.Group("", authMw.RequireAuth(), middlewares.RequireJSON())

	passwordChecked := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if d.AccountLimiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{middlewares.RateLimit(d.AccountLimiter, accountKey), h}
	}

	protected.GET("/me", meH.Get)
	protected.PATCH("/me", passwordChecked(meH.Update)...)
	protected.DELETE("/me", passwordChecked(meH.Delete)...)
	protected.GET("/me/export", meH.Export)

	protected.GET("/items", itemsH.List)
	protected.POST("/items", itemsH.Add)
	protected.PUT("/items/:id", itemsH.Update)
	protected.DELETE("/items/:id", itemsH.Delete)

	r.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, 404, "Not found")
	})

	return r
}

func accountKey(c *gin.Context) string {
	return "account:" + middlewares.KeyByUserOrIP(c)
}
