package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"giftdiscovery/internal/adapters/exa"
	"giftdiscovery/internal/adapters/notify"
	"giftdiscovery/internal/adapters/openai"
	"giftdiscovery/internal/adapters/postgres"
	"giftdiscovery/internal/adapters/rainforest"
	"giftdiscovery/internal/adapters/scrapingbee"
	"giftdiscovery/internal/adapters/serper"
	"giftdiscovery/internal/config"
	"giftdiscovery/internal/core/ports"
	"giftdiscovery/internal/jobs"
	"giftdiscovery/internal/server"
	"giftdiscovery/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Environment variables may also be set directly.
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found")
	}

	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	// Search providers.
	serperClient, err := serper.NewClient()
	if err != nil {
		logger.Fatalf("Failed to initialize serper: %v", err)
	}
	exaClient, err := exa.NewClient()
	if err != nil {
		logger.Fatalf("Failed to initialize exa: %v", err)
	}

	// Metadata providers: rainforest is Amazon-only and routed first,
	// scrapingbee is the general default.
	beeClient, err := scrapingbee.NewClient()
	if err != nil {
		logger.Fatalf("Failed to initialize scrapingbee: %v", err)
	}
	rainforestClient, err := rainforest.NewClient()
	if err != nil {
		logger.Fatalf("Failed to initialize rainforest: %v", err)
	}

	completer, err := openai.NewClient()
	if err != nil {
		logger.Fatalf("Failed to initialize completion client: %v", err)
	}

	// Notification channels. The websocket hub always runs; NATS is optional.
	hub := notify.NewHub(logger)
	hub.Start()
	notifiers := []ports.Notifier{hub}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Close()
		notifiers = append(notifiers, notify.NewNATSNotifier(nc))
		logger.WithField("url", cfg.NATSURL).Info("Publishing completion events to NATS")
	}

	registry := jobs.NewRegistry(logger)
	registry.StartReaper(cfg.JobReapInterval, cfg.JobRetention)
	defer registry.Close()

	searchOrch := service.NewSearchOrchestrator(logger, serperClient, exaClient)
	metadataOrch := service.NewMetadataOrchestrator(
		logger,
		service.MetadataMode(cfg.MetadataMode),
		beeClient,
		rainforestClient, beeClient,
	)

	pipeline := service.NewPipeline(service.PipelineConfig{
		Registry:          registry,
		Search:            searchOrch,
		Metadata:          metadataOrch,
		Names:             service.NewNameExtractor(searchOrch, completer, logger),
		Selector:          service.NewURLSelector(completer, logger),
		Store:             store,
		Notifier:          notify.NewMulti(logger, notifiers...),
		Logger:            logger,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
	})

	srv := server.NewServer(pipeline, registry, hub, logger)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr": cfg.ListenAddr,
			"mode": cfg.MetadataMode,
		}).Info("Discovery server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if err := httpServer.Shutdown(context.Background()); err != nil {
		logger.WithError(err).Warn("HTTP shutdown failed")
	}
}
