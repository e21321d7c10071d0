package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingConfig = errors.New("missing required config")

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Env          string
	Port         int
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int
	MaxBodyBytes int64
	CORSOrigins  []string
	OTLPEndpoint string

	Store     StoreConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type StoreConfig struct {
	Driver   string
	SQLite   SQLiteConfig
	MySQL    MySQLConfig
	Postgres PostgresConfig
}

type SQLiteConfig struct {
	Location string
}

type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	AuthLimit    int
	AccountLimit int
	Window       time.Duration
}

// Load reads configuration from the environment, after a best-effort .env load.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:          getEnv("APP_ENV", "dev"),
		Port:         getEnvInt("PORT", 3000),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTTTL:       getEnvDuration("JWT_EXPIRES_IN", 15*time.Minute),
		BcryptCost:   getEnvInt("BCRYPT_COST", 12),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			AuthLimit:    getEnvInt("RATE_LIMIT_AUTH", 20),
			AccountLimit: getEnvInt("RATE_LIMIT_ACCOUNT", 10),
			Window:       getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("%w: JWT_SECRET", ErrMissingConfig)
	}

	store, err := loadStore()
	if err != nil {
		return Config{}, err
	}
	cfg.Store = store

	return cfg, nil
}

// selectDriver honours STORE_DRIVER, then falls back to whichever networked
// backend has a host configured, then SQLite.
func selectDriver() string {
	if d := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER"))); d != "" {
		return d
	}

	if hasEnvOrFile("MYSQL_HOST") {
		return DriverMySQL
	}

	if hasEnvOrFile("POSTGRES_HOST") {
		return DriverPostgres
	}

	return DriverSQLite
}

func loadStore() (StoreConfig, error) {
	sc := StoreConfig{Driver: selectDriver()}

	switch sc.Driver {
	case DriverSQLite:
		sc.SQLite = SQLiteConfig{Location: getEnv("SQLITE_DB_LOCATION", "/etc/todos/todo.db")}

	case DriverMySQL:
		secrets, err := readSecrets("MYSQL_HOST", "MYSQL_USER", "MYSQL_PASSWORD", "MYSQL_DB")
		if err != nil {
			return StoreConfig{}, err
		}

		sc.MySQL = MySQLConfig{
			Host:     secrets[0],
			Port:     getEnvInt("MYSQL_PORT", 3306),
			User:     secrets[1],
			Password: secrets[2],
			Database: secrets[3],
		}

	case DriverPostgres:
		secrets, err := readSecrets("POSTGRES_HOST", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB")
		if err != nil {
			return StoreConfig{}, err
		}

		sc.Postgres = PostgresConfig{
			Host:     secrets[0],
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     secrets[1],
			Password: secrets[2],
			Database: secrets[3],
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		}

	case DriverMemory:

	default:
		return StoreConfig{}, fmt.Errorf("unknown STORE_DRIVER %q", sc.Driver)
	}

	return sc, nil
}

func readSecrets(keys ...string) ([]string, error) {
	out := make([]string, 0, len(keys))

	for _, key := range keys {
		v, err := ReadSecret(key)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

// ReadSecret returns the trimmed contents of the file named by KEY_FILE when
// set, otherwise the value of KEY. Neither being set is an error.
func ReadSecret(key string) (string, error) {
	if path := os.Getenv(key + "_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s_FILE: %w", key, err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	if v := os.Getenv(key); v != "" {
		return v, nil
	}

	return "", fmt.Errorf("%w: set %s or %s_FILE", ErrMissingConfig, key, key)
}

func (c MySQLConfig) Validate() error {
	return requireFields("MYSQL", map[string]string{
		"HOST": c.Host, "USER": c.User, "PASSWORD": c.Password, "DB": c.Database,
	})
}

func (c PostgresConfig) Validate() error {
	return requireFields("POSTGRES", map[string]string{
		"HOST": c.Host, "USER": c.User, "PASSWORD": c.Password, "DB": c.Database,
	})
}

func requireFields(prefix string, fields map[string]string) error {
	for _, name := range []string{"HOST", "USER", "PASSWORD", "DB"} {
		if fields[name] == "" {
			key := prefix + "_" + name
			return fmt.Errorf("%w: set %s or %s_FILE", ErrMissingConfig, key, key)
		}
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func hasEnvOrFile(key string) bool {
	return os.Getenv(key) != "" || os.Getenv(key+"_FILE") != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15m") or bare seconds ("900").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	if d, err := time.ParseDuration(v); err == nil {
		return d
	}

	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}

	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return fallback
	}
	return out
}
