// AngelaMos | 2026
// serve.go

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/carterperez-dev/voice-tutor/internal/analytics"
	"github.com/carterperez-dev/voice-tutor/internal/audio"
	"github.com/carterperez-dev/voice-tutor/internal/config"
	"github.com/carterperez-dev/voice-tutor/internal/core"
	"github.com/carterperez-dev/voice-tutor/internal/entitlement"
	"github.com/carterperez-dev/voice-tutor/internal/gemini"
	"github.com/carterperez-dev/voice-tutor/internal/health"
	"github.com/carterperez-dev/voice-tutor/internal/middleware"
	"github.com/carterperez-dev/voice-tutor/internal/payment"
	"github.com/carterperez-dev/voice-tutor/internal/promo"
	"github.com/carterperez-dev/voice-tutor/internal/server"
	"github.com/carterperez-dev/voice-tutor/internal/state"
	"github.com/carterperez-dev/voice-tutor/internal/telegram"
	"github.com/carterperez-dev/voice-tutor/internal/user"
	"github.com/carterperez-dev/voice-tutor/internal/voice"
)

const (
	drainDelay = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and its HTTP endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

//nolint:funlen // bootstrap code is inherently verbose
func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"telegram_mode", cfg.Telegram.Mode,
		"state_backend", cfg.State.Backend,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if err := core.Migrate(db, core.MigrateUp); err != nil {
		return err
	}

	var redis *core.Redis
	if cfg.Redis.URL != "" {
		redis, err = core.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	}

	var sink analytics.Sink = analytics.Noop{}
	var mixpanel *analytics.Mixpanel
	if cfg.Mixpanel.Token != "" {
		mixpanel = analytics.NewMixpanel(analytics.MixpanelConfig{
			Token:  cfg.Mixpanel.Token,
			APIURL: cfg.Mixpanel.APIURL,
			Logger: logger,
		})
		sink = mixpanel
	} else if cfg.IsProduction() {
		logger.Warn("MIXPANEL_TOKEN not set, analytics disabled")
	}

	loc, err := cfg.Entitlement.Location()
	if err != nil {
		return err
	}

	catalog, err := entitlement.CatalogFromConfig(cfg.Products)
	if err != nil {
		return fmt.Errorf("build product catalog: %w", err)
	}

	userSvc := user.NewService(user.NewRepository(db.DB))
	promoRepo := promo.NewRepository(db.DB)
	grantRepo := entitlement.NewRepository(db.DB)

	seeded, err := promoRepo.Seed(ctx, seedDefinitions(cfg.Promo.Seed))
	if err != nil {
		return err
	}
	logger.Info("promo codes seeded", "inserted", seeded, "configured", len(cfg.Promo.Seed))

	entitlementSvc := entitlement.NewService(
		grantRepo,
		promoRepo,
		userSvc,
		catalog,
		sink,
		entitlement.WithLocation(loc),
	)
	reconciler := payment.NewReconciler(entitlementSvc, catalog, sink)

	retries, waiting := newStateStores(cfg.State, redis)

	bot, err := telegram.NewBot(cfg.Telegram)
	if err != nil {
		return err
	}
	logger.Info("telegram bot authorized", "username", bot.Username())

	coordinator := voice.NewCoordinator(
		entitlementSvc,
		bot,
		gemini.NewClient(cfg.Gemini, nil),
		audio.NewTranscoder(cfg.Audio),
		retries,
		telegram.NewReporter(bot, catalog),
		sink,
		voice.Options{RecheckOnRetry: cfg.Entitlement.RecheckOnRetry},
	)

	router := telegram.NewRouter(telegram.RouterDeps{
		Messenger:      bot,
		Entitlements:   entitlementSvc,
		Payments:       reconciler,
		Pipeline:       coordinator,
		Waiting:        waiting,
		Catalog:        catalog,
		Sink:           sink,
		SupportContact: cfg.Telegram.SupportContact,
	})

	healthHandler := health.NewHandler(db)
	if redis != nil {
		healthHandler.AddCheck("redis", redis)
	}

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
		Middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.Logger(logger),
		},
	})
	httpRouter := srv.Router()

	errChan := make(chan error, 2)

	switch cfg.Telegram.Mode {
	case config.TelegramModeWebhook:
		var rdb *goredis.Client
		if redis != nil {
			rdb = redis.Client
		}
		limiter := middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
			Limit: middleware.Every(
				cfg.RateLimit.Window,
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			// global ingress cap: Telegram delivers every user's updates
			// from a few shared addresses, so a per-IP key would throttle
			// unrelated users together
			KeyFunc:   middleware.KeyConstant("telegram_webhook"),
			KeyPrefix: cfg.State.KeyPrefix,
			FailOpen:  true,
		})

		telegram.NewWebhookHandler(router).RegisterRoutes(httpRouter,
			limiter.Handler,
			middleware.RequireURLSecret("secret", cfg.Telegram.WebhookSecret),
		)

		hook := strings.TrimRight(cfg.Telegram.WebhookURL, "/") + "/" + cfg.Telegram.WebhookSecret
		if err := bot.SetWebhook(hook); err != nil {
			return err
		}
		logger.Info("telegram webhook registered")
	default:
		poller := telegram.NewPoller(bot, router, cfg.Telegram.PollTimeout)
		go func() {
			if err := poller.Run(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	go func() {
		errChan <- srv.Start()
	}()

	var runErr error
	select {
	case runErr = <-errChan:
		if runErr != nil {
			logger.Error("component failed", "error", runErr)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := router.Wait(shutdownCtx); err != nil {
		logger.Warn("update handlers still running", "error", err)
	}

	if mixpanel != nil {
		if err := mixpanel.Close(shutdownCtx); err != nil {
			logger.Warn("analytics flush error", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func newStateStores(cfg config.StateConfig, redis *core.Redis) (state.RetryCache, state.WaitSet) {
	if cfg.Backend == config.StateBackendRedis {
		return state.NewRedisRetryCache(redis.Client, cfg.KeyPrefix),
			state.NewRedisWaitSet(redis.Client, cfg.KeyPrefix, cfg.WaitTTL)
	}
	return state.NewMemoryRetryCache(), state.NewMemoryWaitSet(cfg.WaitTTL)
}

func seedDefinitions(seeds []config.PromoSeedConfig) []promo.Definition {
	defs := make([]promo.Definition, 0, len(seeds))
	for _, s := range seeds {
		defs = append(defs, promo.Definition{
			Code:         s.Code,
			DurationDays: s.DurationDays,
			MaxUses:      s.MaxUses,
		})
	}
	return defs
}
