package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apiHandler "github.com/fastygo/volunteers/api/handler"
	"github.com/fastygo/volunteers/internal/auth"
	"github.com/fastygo/volunteers/internal/config"
	"github.com/fastygo/volunteers/internal/infrastructure/boltstore"
	"github.com/fastygo/volunteers/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/volunteers/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/volunteers/internal/infrastructure/redis"
	"github.com/fastygo/volunteers/internal/middleware"
	"github.com/fastygo/volunteers/internal/router"
	"github.com/fastygo/volunteers/internal/services/keyrefresh"
	"github.com/fastygo/volunteers/internal/services/lifecycle"
	"github.com/fastygo/volunteers/pkg/httpcontext"
	"github.com/fastygo/volunteers/repository"
	"github.com/fastygo/volunteers/repository/postgres"
	redisRepo "github.com/fastygo/volunteers/repository/redis"
	"github.com/fastygo/volunteers/repository/sqlite"
	taskUC "github.com/fastygo/volunteers/usecase/task"
	volunteerUC "github.com/fastygo/volunteers/usecase/volunteer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, zapLogger, err := bootstrap()
		if err != nil {
			return fail(err)
		}
		defer zapLogger.Sync()

		if err := cfg.Validate(); err != nil {
			zapLogger.Error("invalid configuration", zap.Error(err))
			return err
		}
		return serve(cfg, zapLogger)
	},
}

type repositories struct {
	tasks      repository.TaskRepository
	volunteers repository.VolunteerRepository
	ping       monitor.PingFunc
}

func serve(cfg *config.Config, zapLogger *zap.Logger) error {
	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, cancel := manager.Listen(context.Background())
	defer cancel()
	// Releases whatever was opened when startup fails part way.
	defer manager.Shutdown(context.Background())

	repos, err := openRepositories(appCtx, cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Error("database connection failed", zap.Error(err))
		return err
	}

	checks := []monitor.Check{{Name: "database", Ping: repos.ping, Required: true}}

	var redisClient *goRedis.Client
	if cfg.Auth.JWKSCache == "redis" {
		redisClient, err = redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
		if err != nil {
			zapLogger.Error("redis connection failed", zap.Error(err))
			return err
		}
		manager.RegisterCloser("redis", redisClient)
		checks = append(checks, monitor.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	keys, err := openKeySource(cfg, redisClient, manager, zapLogger)
	if err != nil {
		zapLogger.Error("key set store failed", zap.Error(err))
		return err
	}
	checks = append(checks, monitor.Check{
		Name: "jwks",
		Ping: func(ctx context.Context) error {
			_, err := keys.KeySet(ctx)
			return err
		},
		Timeout: cfg.Auth.JWKSTimeout,
	})

	if cfg.Auth.JWKSRefresh > 0 {
		refresher, err := keyrefresh.New(keys, cfg.Auth.JWKSRefresh, zapLogger)
		if err != nil {
			return err
		}
		refresher.Start()
		manager.Register("jwks_refresher", func(ctx context.Context) error {
			refresher.Stop(ctx)
			return nil
		})
	}

	mon := monitor.New(checks, cfg.Monitor.Interval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	verifier := auth.NewVerifier(keys, auth.VerifierConfig{
		Audience:   cfg.Auth.Audience,
		Issuer:     cfg.Auth.Issuer(),
		Algorithms: cfg.Auth.Algorithms,
	}, zapLogger)
	authenticator := middleware.NewAuthenticator(verifier, ctxAdapter, zapLogger, apiHandler.ErrorWriter(zapLogger))

	handlers := router.Handlers{
		Task:      apiHandler.NewTaskHandler(taskUC.New(repos.tasks, repos.volunteers, zapLogger), ctxAdapter, zapLogger),
		Volunteer: apiHandler.NewVolunteerHandler(volunteerUC.New(repos.volunteers, zapLogger), ctxAdapter, zapLogger),
		Health:    apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	r := router.New(handlers, authenticator.Require, zapLogger)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		serverErr <- server.ListenAndServe(cfg.Address())
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	return manager.Wait(appCtx, serverErr)
}

// openRepositories selects SQLite or Postgres from the database URL.
func openRepositories(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) (*repositories, error) {
	if cfg.Database.Driver() == "sqlite" {
		db, err := sqlite.Open(cfg.Database.SQLitePath(), zapLogger)
		if err != nil {
			return nil, err
		}
		manager.Register("sqlite", func(context.Context) error {
			sqlite.Close(db, zapLogger)
			return nil
		})
		return &repositories{
			tasks:      sqlite.NewTaskRepository(db),
			volunteers: sqlite.NewVolunteerRepository(db),
			ping:       gormPing(db),
		}, nil
	}

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	pool, err := pgInfra.NewPool(ctx, cfg.Database, zapLogger)
	if err != nil {
		return nil, err
	}
	manager.Register("postgres", func(context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})
	return &repositories{
		tasks:      postgres.NewTaskRepository(pool),
		volunteers: postgres.NewVolunteerRepository(pool),
		ping:       pgxPing(pool),
	}, nil
}

// openKeySource builds the cached key set source with the configured store.
func openKeySource(cfg *config.Config, redisClient *goRedis.Client, manager *lifecycle.Manager, zapLogger *zap.Logger) (*auth.CachedSource, error) {
	var store auth.Store
	switch cfg.Auth.JWKSCache {
	case "redis":
		store = redisRepo.NewKeySetStore(redisClient, cfg.Auth.Audience, cfg.Auth.JWKSCacheTTL)
	case "bolt":
		boltStore, err := boltstore.Open(cfg.Auth.JWKSBoltPath)
		if err != nil {
			return nil, err
		}
		manager.RegisterCloser("jwks_store", boltStore)
		store = boltStore
	}

	remote := auth.NewRemoteSource(cfg.Auth.JWKSURL(), cfg.Auth.JWKSTimeout, nil)
	zapLogger.Info("identity provider configured",
		zap.String("jwks_url", cfg.Auth.JWKSURL()),
		zap.String("cache", cfg.Auth.JWKSCache),
		zap.Duration("ttl", cfg.Auth.JWKSCacheTTL),
	)
	return auth.NewCachedSource(remote, store, cfg.Auth.JWKSCacheTTL, zapLogger).
		WithMinRefreshInterval(cfg.Auth.JWKSMinRefresh), nil
}

func pgxPing(pool *pgxpool.Pool) monitor.PingFunc {
	return pool.Ping
}

func gormPing(db *gorm.DB) monitor.PingFunc {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
