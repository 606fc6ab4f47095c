// @title        Users Service API
// @version      1.0
// @description  User registration, authentication, roles and token issuance.
// @BasePath     /
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kitchenhelper/users-service/internal/api"
	"github.com/kitchenhelper/users-service/internal/api/handler"
	"github.com/kitchenhelper/users-service/internal/core/ports"
	"github.com/kitchenhelper/users-service/internal/core/service"
	"github.com/kitchenhelper/users-service/internal/infrastructure/db/redis"
	"github.com/kitchenhelper/users-service/internal/infrastructure/db/relational"
	"github.com/kitchenhelper/users-service/internal/infrastructure/queue"
	"github.com/kitchenhelper/users-service/internal/infrastructure/security"
	"github.com/kitchenhelper/users-service/internal/infrastructure/tracing"
	"github.com/kitchenhelper/users-service/internal/pkg/config"
	"github.com/kitchenhelper/users-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
		File:   cfg.LogFile,
		Fields: map[string]string{"service": cfg.ServiceName},
	})

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal().Err(err).Msg("users service stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, lg zerolog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			lg.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	db, err := openDatabase(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := relational.Close(db); err != nil {
			lg.Warn().Err(err).Msg("close database")
		}
	}()

	issuer, err := security.NewJWTIssuer(security.TokenConfig{
		Key:        cfg.JWT.Key,
		Algorithm:  cfg.JWT.Algorithm,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}
	hasher := security.NewBcryptHasher(0)

	healthChecks := map[string]handler.DependencyCheck{
		"database": func(ctx context.Context) error { return relational.Ping(ctx, db) },
	}

	var authOpts []service.AuthOption
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		authOpts = append(authOpts, service.WithSignInLimiter(
			redis.NewSignInLimiter(rdb, int(cfg.Lockout.Threshold), cfg.Lockout.Window),
		))
		healthChecks["redis"] = func(ctx context.Context) error { return pingRedis(ctx, rdb) }
		lg.Info().Str("addr", cfg.Redis.Addr).Msg("sign-in lockout enabled")
	}

	publisher, closePublisher, err := newPublisher(cfg, lg)
	if err != nil {
		return err
	}
	defer closePublisher()

	// The dispatcher outlives the HTTP server so in-flight events drain after
	// the last request.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.EventWorkers, publisher, lg)
	dispatcher.Start(dispatchCtx)
	defer func() {
		stopDispatch()
		dispatcher.Wait()
	}()

	userRepo := relational.NewUserRepository(db)
	roleRepo := relational.NewRoleRepository(db)

	userSvc := service.NewUserService(userRepo, hasher, dispatcher, lg)
	roleSvc := service.NewRoleService(roleRepo, dispatcher, lg)
	authSvc := service.NewAuthService(userRepo, hasher, issuer, lg, authOpts...)

	seeder := service.NewSeeder(userSvc, roleSvc, lg)
	if _, err := seeder.SeedDefaultUser(ctx, ports.CreateUserInput{
		FirstName:   cfg.DefaultUser.FirstName,
		LastName:    cfg.DefaultUser.LastName,
		Email:       cfg.DefaultUser.Email,
		PhoneNumber: cfg.DefaultUser.PhoneNumber,
		Password:    cfg.DefaultUser.Password,
	}); err != nil {
		return fmt.Errorf("seed default user: %w", err)
	}

	e := api.NewRouter(api.Dependencies{
		Auth:         authSvc,
		Users:        userSvc,
		Roles:        roleSvc,
		Verifier:     issuer,
		HealthChecks: healthChecks,
		RefreshTTL:   cfg.JWT.RefreshTTL,
		CORS: api.CORSConfig{
			Origins: cfg.CORS.Origins,
			Methods: cfg.CORS.Methods,
			Headers: cfg.CORS.Headers,
		},
		ServiceName: cfg.ServiceName,
		Logger:      lg,
	})

	serveErr := make(chan error, 1)
	go func() {
		lg.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("users service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		lg.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (*gorm.DB, error) {
	dbCfg := relational.Config{
		Driver:     cfg.Database.Driver,
		SQLiteFile: cfg.Database.SQLiteFilename,
		LogQueries: cfg.Database.LogQueries,
	}
	if cfg.Database.Driver == relational.DriverPostgres {
		dbCfg.DSN = cfg.Database.Postgres.DSN()
	}

	db, err := relational.Open(ctx, dbCfg, lg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := relational.RunMigrations(ctx, db, lg); err != nil {
		_ = relational.Close(db)
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

// newPublisher picks Kafka when brokers are configured and falls back to
// logging events otherwise.
func newPublisher(cfg *config.Config, lg zerolog.Logger) (ports.EventPublisher, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		lg.Warn().Msg("KAFKA_BROKERS not set, events are only logged")
		return queue.NewLogPublisher(lg), func() {}, nil
	}

	kp, err := queue.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka: %w", err)
	}
	closeFn := func() {
		if err := kp.Close(); err != nil {
			lg.Warn().Err(err).Msg("close kafka writer")
		}
	}
	return kp, closeFn, nil
}

func pingRedis(ctx context.Context, rdb *goredis.Client) error {
	return rdb.Ping(ctx).Err()
}
