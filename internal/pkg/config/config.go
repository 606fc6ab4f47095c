package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DotEnvFiles are read before the environment, in priority order. Variables
// already present in the environment always win.
var DotEnvFiles = []string{".env", ".env.template"}

type Config struct {
	Port        string `env:"PORT,         default=8080"`
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	LogFile     string `env:"LOG_FILE"`
	ServiceName string `env:"SERVICE_NAME, default=users-service"`

	JWT          JWTConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	CORS         CORSConfig
	DefaultUser  DefaultUserConfig
	Tracing      TracingConfig
	Lockout      LockoutConfig
	EventWorkers int `env:"EVENT_WORKERS, default=4"`
}

type JWTConfig struct {
	Key        string        `env:"JWT_KEY"`
	Algorithm  string        `env:"JWT_ALGORITHM,   default=HS256"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL,  default=60m"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL, default=168h"`
}

type DatabaseConfig struct {
	Driver         string `env:"DATABASE,        default=sqlite"`
	LogQueries     bool   `env:"LOG_QUERIES,     default=false"`
	SQLiteFilename string `env:"SQLITE_FILENAME"`
	Postgres       PostgresConfig
}

type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST"`
	Port     int    `env:"POSTGRES_PORT"`
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Database string `env:"POSTGRES_DATABASE"`
	SSLMode  string `env:"POSTGRES_SSLMODE, default=disable"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC, default=users.events"`
}

type CORSConfig struct {
	Origins []string `env:"CORS_ORIGINS, default=*"`
	Methods []string `env:"CORS_METHODS, default=GET,POST,PATCH,DELETE,OPTIONS"`
	Headers []string `env:"CORS_HEADERS, default=Authorization,Content-Type"`
}

type DefaultUserConfig struct {
	FirstName   string `env:"DEFAULT_USER_FIRST_NAME, default=Admin"`
	LastName    string `env:"DEFAULT_USER_LAST_NAME,  default=User"`
	Email       string `env:"DEFAULT_USER_EMAIL"`
	PhoneNumber string `env:"DEFAULT_USER_PHONE_NUMBER"`
	Password    string `env:"DEFAULT_USER_PASSWORD"`
}

type TracingConfig struct {
	Endpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

type LockoutConfig struct {
	Threshold int64         `env:"LOCKOUT_THRESHOLD, default=5"`
	Window    time.Duration `env:"LOCKOUT_WINDOW,    default=15m"`
}

// Load reads the dotenv files that exist, then the environment, and
// validates the result.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotEnv(DotEnvFiles); err != nil {
		return nil, err
	}
	return FromLookuper(ctx, envconfig.OsLookuper())
}

// FromLookuper builds a Config from an arbitrary variable source.
func FromLookuper(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Key == "" {
		errs = append(errs, errors.New("JWT_KEY is required"))
	}
	if !strings.HasPrefix(strings.ToUpper(c.JWT.Algorithm), "HS") {
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM %q is not an HMAC algorithm", c.JWT.Algorithm))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if !c.Database.Postgres.complete() {
			errs = append(errs, errors.New("postgres selected as database but its configuration is incomplete"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE %q must be postgres or sqlite", c.Database.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (p PostgresConfig) complete() bool {
	return p.Host != "" && p.Port != 0 && p.User != "" && p.Password != "" && p.Database != ""
}

// DSN renders the postgres connection URL.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + strconv.Itoa(p.Port),
		Path:     p.Database,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

func loadDotEnv(files []string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("config: read dotenv: %w", err)
	}
	return nil
}
