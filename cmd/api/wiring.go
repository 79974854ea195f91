package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking-assistant/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking-assistant/internal/api/router"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	"github.com/wolfman30/clinic-booking-assistant/internal/bookings"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/ingest"
	"github.com/wolfman30/clinic-booking-assistant/internal/notify"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/webchat"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type application struct {
	handler http.Handler
	closers []func()
}

// Close releases clients in reverse order of construction.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newApplication(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	app := &application{}
	fail := func(err error) (*application, error) {
		app.Close()
		return nil, err
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("load aws config: %w", err))
	}
	metricsHandler, am := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	} else {
		logger.Warn("redis unavailable; sessions and transcripts are kept in memory")
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fail(err)
	}
	if pool != nil {
		app.closers = append(app.closers, pool.Close)
	}

	llm, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, am, logger)
	if err != nil {
		return fail(fmt.Errorf("build llm client: %w", err))
	}
	app.closers = append(app.closers, closeLLM)

	index, closeIndex, err := bootstrap.BuildRetrievalIndex(ctx, cfg, awsCfg, logger)
	if err != nil {
		return fail(fmt.Errorf("build retrieval index: %w", err))
	}
	app.closers = append(app.closers, closeIndex)
	retriever := conversation.NewRetriever(index, logger)

	library, err := ingest.NewLibrary(cfg.UploadDir, logger)
	if err != nil {
		return fail(err)
	}
	mirror := bootstrap.BuildDocumentMirror(cfg, awsCfg, logger)
	knowledge := bootstrap.BuildKnowledgeRepository(redisClient)
	clinicStore := bootstrap.BuildClinicStore(redisClient)
	registry := clinic.NewRegistry()

	rebuilder := ingest.NewRebuilder(ingest.RebuilderConfig{
		Library:   library,
		Extractor: ingest.FileExtractor{},
		Registry:  registry,
		Index:     retriever,
		Cache:     directoryCache(clinicStore),
		Knowledge: knowledge,
		Chunker:   conversation.NewChunker(cfg.RetrievalChunkSize, cfg.RetrievalChunkOverlap),
		Metrics:   am,
		Logger:    logger,
	})
	warmStart(ctx, startup{
		library:   library,
		mirror:    mirror,
		rebuilder: rebuilder,
		store:     clinicStore,
		registry:  registry,
		knowledge: knowledge,
		retriever: retriever,
		logger:    logger,
	})

	bookingService := bookings.NewService(bootstrap.BuildBookingRepository(pool, logger), logger)
	sender, provider := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	logger.Info("confirmation email provider selected", "provider", provider)
	machine := booking.NewMachine(bookingService, notify.NewConfirmationNotifier(sender, logger), logger, booking.WithMetrics(am))

	assistant := conversation.NewAssistant(conversation.AssistantConfig{
		Registry:    registry,
		Machine:     machine,
		Sessions:    bootstrap.BuildSessionStore(redisClient, cfg),
		Transcripts: bootstrap.BuildTranscriptStore(redisClient, cfg),
		Retriever:   retriever,
		LLM:         llm,
		Metrics:     am,
		Logger:      logger,
		TopK:        cfg.RetrievalTopK,
		Temperature: float32(cfg.LLMTemperature),
		MaxTokens:   int32(cfg.LLMMaxTokens),
	})

	app.handler = router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(assistant, logger),
		ClinicHandler:       clinic.NewHandler(registry, logger),
		DocumentsHandler:    ingest.NewHandler(library, mirror, rebuilder, logger),
		BookingsHandler:     bookings.NewHandler(bookingService, logger),
		WebChatHandler:      webchat.NewHandler(assistant, logger),
		HealthChecks:        healthChecks(redisClient, pool),
		MetricsHandler:      metricsHandler,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin booking routes are disabled")
	}
	return app, nil
}

func setupMetrics() (http.Handler, *metrics.AssistantMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewAssistantMetrics(reg)
}

func directoryCache(store *clinic.Store) ingest.DirectoryCache {
	if store == nil {
		return nil
	}
	return store
}

func healthChecks(redisClient *redis.Client, pool *pgxpool.Pool) []router.HealthCheck {
	var checks []router.HealthCheck
	if redisClient != nil {
		checks = append(checks, router.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	if pool != nil {
		checks = append(checks, router.HealthCheck{Name: "postgres", Check: pool.Ping})
	}
	return checks
}
