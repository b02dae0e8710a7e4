package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	devSecret = "ecofinds-dev-secret"
)

type Config struct {
	Env      string
	LogLevel string

	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	StoreDriver   string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string

	JWTSecret     string
	PaymentAPIKey string

	CartMaxRetries     int
	CatalogConcurrency int
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

// key -> environment variable
var envBindings = map[string]string{
	"app.env":                      "APP_ENV",
	"log.level":                    "LOG_LEVEL",
	"http.port":                    "PORT",
	"http.shutdown_timeout":        "SHUTDOWN_TIMEOUT",
	"cors.origins":                 "CORS_ORIGIN",
	"store.driver":                 "STORE_DRIVER",
	"postgres.dsn":                 "DATABASE_URL",
	"mongo.uri":                    "MONGO_URI",
	"mongo.database":               "MONGO_DATABASE",
	"auth.jwt_secret":              "JWT_SECRET",
	"payment.api_key":              "PAYMENT_API_KEY",
	"cart.max_retries":             "CART_MAX_RETRIES",
	"checkout.catalog_concurrency": "CHECKOUT_CATALOG_CONCURRENCY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("cors.origins", "http://localhost:5173,http://localhost:8080,http://localhost:8081")
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("mongo.database", "ecofinds")
	v.SetDefault("cart.max_retries", 5)
	v.SetDefault("checkout.catalog_concurrency", 10)
}

// Load reads configuration from defaults, an optional YAML file, a .env
// file in the working directory and the environment, in increasing order
// of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Env:                strings.ToLower(v.GetString("app.env")),
		LogLevel:           v.GetString("log.level"),
		Port:               v.GetInt("http.port"),
		ShutdownTimeout:    v.GetDuration("http.shutdown_timeout"),
		CORSOrigins:        origins(v.Get("cors.origins")),
		StoreDriver:        strings.ToLower(v.GetString("store.driver")),
		PostgresDSN:        v.GetString("postgres.dsn"),
		MongoURI:           v.GetString("mongo.uri"),
		MongoDatabase:      v.GetString("mongo.database"),
		JWTSecret:          v.GetString("auth.jwt_secret"),
		PaymentAPIKey:      v.GetString("payment.api_key"),
		CartMaxRetries:     v.GetInt("cart.max_retries"),
		CatalogConcurrency: v.GetInt("checkout.catalog_concurrency"),
	}
	if cfg.JWTSecret == "" && cfg.StoreDriver == DriverMemory && cfg.IsDev() {
		cfg.JWTSecret = devSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// origins accepts the comma separated env form as well as a YAML list.
func origins(raw interface{}) []string {
	var parts []string
	switch t := raw.(type) {
	case string:
		parts = strings.Split(t, ",")
	case []string:
		parts = t
	case []interface{}:
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres.dsn (DATABASE_URL) is required for the postgres driver"))
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("mongo.uri (MONGO_URI) is required for the mongo driver"))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("mongo.database must not be empty"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.StoreDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (JWT_SECRET) is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.Port))
	}
	if c.CartMaxRetries < 1 {
		errs = append(errs, errors.New("cart.max_retries must be at least 1"))
	}
	if c.CatalogConcurrency < 1 {
		errs = append(errs, errors.New("checkout.catalog_concurrency must be at least 1"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}
