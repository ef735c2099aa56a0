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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/trogers1052/flexbot/internal/api"
	"github.com/trogers1052/flexbot/internal/bot"
	"github.com/trogers1052/flexbot/internal/coingecko"
	"github.com/trogers1052/flexbot/internal/config"
	"github.com/trogers1052/flexbot/internal/database"
	"github.com/trogers1052/flexbot/internal/kafka"
	"github.com/trogers1052/flexbot/internal/ledger"
	"github.com/trogers1052/flexbot/internal/metrics"
	"github.com/trogers1052/flexbot/internal/redis"
	"github.com/trogers1052/flexbot/internal/scheduler"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("flexbot stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("flexbot stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := runMigrations(cfg.Database.MigrationsPath, cfg.Database.ConnectionString(), logger); err != nil {
		return err
	}
	logger.Info("connected to PostgreSQL database")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Price lookups, with Redis in front when available
	pinned, err := config.LoadAliases(cfg.CoinGecko.AliasesFile)
	if err != nil {
		return err
	}
	cgOpts := []coingecko.Option{
		coingecko.WithPinned(pinned),
		coingecko.WithLogger(logger),
	}
	var cache api.Pinger
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", slog.String("error", err.Error()))
		} else {
			defer redisClient.Close()
			cache = redisClient
			cgOpts = append(cgOpts, coingecko.WithCache(redisClient, cfg.Redis.QuoteTTL))
			logger.Info("connected to Redis cache", slog.String("addr", cfg.Redis.Address()))
		}
	}
	cg := coingecko.NewClient(cfg.CoinGecko.BaseURL, cfg.CoinGecko.Timeout, cgOpts...)
	prices := metrics.InstrumentLookup(cg, m)

	// Ledger engine, publishing position events to Kafka when enabled
	engineOpts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithEvents(m),
	}
	if cfg.Kafka.Enabled {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.PositionsTopic, logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("failed to close kafka publisher", slog.String("error", err.Error()))
			}
		}()
		engineOpts = append(engineOpts, ledger.WithEvents(publisher))
		logger.Info("kafka publisher initialized",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Kafka.PositionsTopic),
		)
	}
	engine := ledger.NewEngine(db, prices, ledger.NewMemoryHandleCache(), engineOpts...)

	// HTTP server
	handler := api.NewHandler(engine, prices, db, cache, cfg.Kafka.Enabled, logger)
	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      api.SetupRoutes(handler, reg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sched := scheduler.NewScheduler(cg, cfg.Scheduler.AliasRefreshSpec, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := sched.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		sched.Stop()
		return nil
	})

	if cfg.Discord.Token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, running without chat bot")
	} else {
		g.Go(func() error {
			return runBot(ctx, cfg, engine, prices, m, logger)
		})
	}

	return g.Wait()
}

func runBot(ctx context.Context, cfg *config.Config, engine *ledger.Engine, prices bot.PriceLookup, m *metrics.Metrics, logger *slog.Logger) error {
	discord, err := bot.NewDiscord(cfg.Discord.Token, logger)
	if err != nil {
		return err
	}
	b := bot.New(discord, engine, prices,
		bot.WithPrefix(cfg.Discord.Prefix),
		bot.WithIdleTimeout(cfg.Pager.IdleTimeout),
		bot.WithRecorder(m),
		bot.WithLogger(logger),
	)
	discord.Attach(b)

	if err := discord.Open(); err != nil {
		return err
	}
	logger.Info("connected to Discord")

	<-ctx.Done()
	b.Close()
	return discord.Close()
}

func runMigrations(sourceURL, databaseURL string, logger *slog.Logger) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to apply; database is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("database migrations applied")
	return nil
}
