package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/legendboard/pkg/account"
	"github.com/tendant/legendboard/pkg/externalprovider"
	"github.com/tendant/legendboard/pkg/login"
	"github.com/tendant/legendboard/pkg/ratelimit"
	"github.com/tendant/legendboard/pkg/router"
)

const purgeInterval = time.Hour

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.App.Environment())
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfg.Database.MigrateOnStart {
		if err := migrate(cmd, cfg.Database, "up"); err != nil {
			return err
		}
	}

	dbConfig := cfg.Database.ToDbConfig()
	pool, err := dbutils.NewDbPool(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	deps := router.Dependencies{
		Repository: account.NewPostgresRepository(pool),
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		Logger:     logger,
	}

	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		deps.RateStore = ratelimit.NewRedisStore(rdb)
		deps.StateRepository = externalprovider.NewRedisStateRepository(rdb)
		slog.Info("Using Redis for rate limits and OAuth state", "addr", opts.Addr)
	} else {
		store := ratelimit.NewMemoryStore(time.Minute)
		defer store.Close()
		deps.RateStore = store
	}

	routes, err := router.NewConfig(cfg, deps)
	if err != nil {
		return err
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	router.SetupRoutes(server.R, routes)

	go purgeResetTokens(ctx, routes.LoginService, purgeInterval)

	slog.Info("Starting legendboard", "env", cfg.App.Env, "prefix", cfg.App.Prefix, "google", cfg.Google.Enabled())
	server.Run()
	return nil
}

// purgeResetTokens clears expired reset tokens until ctx is done.
func purgeResetTokens(ctx context.Context, svc *login.LoginService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredResetTokens(ctx)
			if err != nil {
				slog.Error("Failed purging expired reset tokens", "err", err)
				continue
			}
			if n > 0 {
				slog.Info("Purged expired reset tokens", "count", n)
			}
		}
	}
}
