package relational

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultTimeout      = 5 * time.Second
	defaultMaxOpenConns = 8
	defaultMaxIdleConns = 3
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Config captures the settings for opening the relational store.
type Config struct {
	Driver string
	// DSN is the postgres connection string.
	DSN string
	// SQLiteFile is the sqlite database path. Empty means in-memory.
	SQLiteFile   string
	LogQueries   bool
	MaxOpenConns int
	Timeout      time.Duration
}

// Open connects to the configured database and verifies connectivity with a
// ping. Constraint errors are translated to gorm sentinels.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*gorm.DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.SQLiteFile))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	level := gormlogger.Silent
	if cfg.LogQueries {
		level = gormlogger.Info
	}
	queryLog := gormlogger.New(zerologWriter{log: log}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         queryLog,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	switch {
	case cfg.Driver == DriverSQLite && cfg.SQLiteFile == "":
		// Every connection to :memory: is a separate database.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	default:
		maxOpen := cfg.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = defaultMaxOpenConns
		}
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(min(defaultMaxIdleConns, maxOpen))
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	log.Info().Str("driver", cfg.Driver).Msg("database connected")
	return db, nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RunMigrations applies the embedded SQL migrations in lexical order. Every
// statement is idempotent so reruns are safe.
func RunMigrations(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := db.WithContext(ctx).Exec(string(raw)).Error; err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		log.Debug().Str("migration", name).Msg("migration applied")
	}
	log.Info().Int("count", len(names)).Msg("migrations applied")
	return nil
}

func sqliteDSN(file string) string {
	if file == "" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return file + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// zerologWriter routes gorm's query log through zerolog.
type zerologWriter struct {
	log zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...any) {
	w.log.Debug().Str("component", "gorm").Msgf(format, args...)
}
