// Package config loads process configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Port            string        `env:"PORT,             default=5000"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	JWTSecret       string        `env:"JWT_SECRET"`
	AdminRoleName   string        `env:"ADMIN_ROLE_NAME,  default=Administrator"`
	StoreDriver     string        `env:"STORE_DRIVER,     default=postgres"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Postgres  PostgresConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Mail      MailConfig
	Bootstrap BootstrapConfig
}

type PostgresConfig struct {
	URL      string `env:"DATABASE_URL"`
	User     string `env:"DB_USER,     default=postgres"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST,     default=localhost"`
	Port     string `env:"DB_PORT,     default=5432"`
	Database string `env:"DB_DATABASE, default=apilogin"`
	SSLMode  string `env:"DB_SSLMODE,  default=disable"`
	MaxConns int32  `env:"DB_MAX_CONNS, default=10"`
}

// DSN returns DATABASE_URL when set, otherwise a URL assembled from the DB_* parts.
func (c PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=apilogin"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
	// RoleCacheTTL enables the Redis role cache when positive.
	RoleCacheTTL time.Duration `env:"ROLE_CACHE_TTL, default=0s"`
}

type MailConfig struct {
	Host     string `env:"SMTP_HOST,    default=smtp.gmail.com"`
	Port     int    `env:"SMTP_PORT,    default=587"`
	Username string `env:"EMAIL_USER"`
	Password string `env:"CLAVE_APP"`
	From     string `env:"MAIL_FROM"`
	Async    bool   `env:"MAIL_ASYNC,   default=false"`
	Workers  int    `env:"MAIL_WORKERS, default=4"`
}

// Enabled reports whether SMTP credentials are present.
func (c MailConfig) Enabled() bool {
	return c.Username != "" && c.Password != ""
}

// Sender is the From address, defaulting to the SMTP account.
func (c MailConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

type BootstrapConfig struct {
	Username string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	Email    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	Password string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads an optional .env file and then the environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	// without SMTP, reset codes are only logged
	if !c.IsDevelopment() && !c.Mail.Enabled() {
		return fmt.Errorf("config: EMAIL_USER and CLAVE_APP are required when ENV=%s", c.Env)
	}
	return nil
}

// IsDevelopment reports whether the process runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
