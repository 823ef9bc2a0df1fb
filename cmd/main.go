package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"floodrescue/backend/internal/advisory"
	"floodrescue/backend/internal/api/handler"
	"floodrescue/backend/internal/auth"
	"floodrescue/backend/internal/bus"
	"floodrescue/backend/internal/config"
	"floodrescue/backend/internal/geocode"
	"floodrescue/backend/internal/localization"
	"floodrescue/backend/internal/logging"
	"floodrescue/backend/internal/metrics"
	"floodrescue/backend/internal/notifier"
	"floodrescue/backend/internal/rescuehub"
	"floodrescue/backend/internal/routing"
	"floodrescue/backend/internal/storage"
	"floodrescue/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// setupBus connects the change bus selected by cfg. The Redis client is
// returned as well so the route cache can share it; it is nil otherwise.
func setupBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (bus.Bus, *redis.Client, error) {
	switch cfg.Bus {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return nil, nil, err
		}
		return bus.NewRedisBus(rdb, logger), rdb, nil
	case "nats":
		nc, err := bus.DialNATS(cfg.NATSURL, "floodrescue-"+cfg.Env)
		if err != nil {
			return nil, nil, err
		}
		return bus.NewNATSBus(nc, logger), nil, nil
	default:
		return bus.NewLocalBus(), nil, nil
	}
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.InitLogger(cfg.Env, cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting flood rescue backend", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Durable store
	db, err := storage.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	store := storage.NewStorageService(db)
	if err := store.AutoMigrate(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// 2. Metrics and change bus
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	changes, rdb, err := setupBus(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect change bus", zap.String("bus", cfg.Bus), zap.Error(err))
	}
	defer func() { _ = changes.Close() }()

	// 3. Hub and external collaborators
	hub := rescuehub.NewHubService(store, rescuehub.Options{
		Bus:            changes,
		Metrics:        m,
		Logger:         logger,
		MaxProofImages: cfg.MaxProofImages,
	})
	go hub.Run(ctx)

	var cache routing.Cache = routing.NewMemoryCache()
	if rdb != nil {
		cache = routing.NewRedisCache(rdb, config.RouteCacheTTL)
	}
	routes := routing.NewService(routing.NewOSRMClient(cfg.OSRMURL, cfg.OutboundTimeout), cache, m, logger)

	var completer advisory.Completer
	if cfg.OpenAIKey != "" {
		completer = advisory.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	} else {
		logger.Warn("OPENAI_API_KEY not set, risk advisory will return the default assessment")
	}
	advisor := advisory.New(completer, cfg.OpenAIModel, m, logger)
	geocoder := geocode.NewClient(cfg.NominatimURL, cfg.OutboundTimeout, m, logger)
	issuer := auth.NewIssuer(cfg.JWTSecret, config.TokenTTL)

	// 4. Telegram bot and CRITICAL alerts
	if cfg.TelegramToken != "" {
		localizer, err := localization.Default()
		if err != nil {
			logger.Fatal("Failed to load phrasebook", zap.Error(err))
		}
		botService, err := telegram.NewBotService(cfg.TelegramToken, hub, geocoder, localizer, logger)
		if err != nil {
			logger.Fatal("Failed to start Telegram bot", zap.Error(err))
		}
		go botService.Run(ctx)

		if cfg.TelegramAlertChatID != 0 {
			relay := telegram.NewAlertRelay(botService.BotAPI, cfg.TelegramAlertChatID,
				notifier.New(notifier.Critical), geocoder, localizer, localization.DefaultLanguage, logger)
			defer hub.SubscribeFunc(relay.HandleSnapshot)()
		}
	} else {
		logger.Warn("TELEGRAM_TOKEN not set, bot disabled")
	}

	// 5. HTTP API
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h := handler.NewHandler(hub, issuer, routes, advisor, geocoder, logger)
	h.Register(r, reg)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	<-hub.Done()
}
