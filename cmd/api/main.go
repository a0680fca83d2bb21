package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"aigrader/docs"
	"aigrader/internal/config"
	"aigrader/internal/database"
	"aigrader/internal/database/migration"
	"aigrader/internal/encoder"
	"aigrader/internal/extractor"
	handlers "aigrader/internal/http/handler"
	"aigrader/internal/http/middleware"
	"aigrader/internal/logger"
	"aigrader/internal/metrics"
	"aigrader/internal/otel"
	"aigrader/internal/reference"
	"aigrader/internal/repository/postgres"
	"aigrader/internal/scorer"
	"aigrader/internal/service"
	"aigrader/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title AI Grader API
// @version 1.0
// @description Answer key upload, submission grading by semantic similarity and per-user result history.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc := logger.LoadLocation(cfg.Timezone)
	log, err := logger.New(cfg.LogLevel, loc)
	if err != nil {
		log, _ = logger.New("info", loc)
		log.Warn("invalid LOG_LEVEL, using info", zap.String("log_level", cfg.LogLevel))
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migration.Run(db, log); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal("failed to initialize object storage", zap.Error(err))
	}

	enc, err := encoder.New(cfg.Encoder, log)
	if err != nil {
		log.Fatal("failed to initialize encoder", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	gradingMetrics, err := metrics.NewGrading(reg)
	if err != nil {
		log.Fatal("failed to register grading metrics", zap.Error(err))
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal("failed to register http metrics", zap.Error(err))
	}

	// Initialize the grading pipeline
	sc := scorer.New(enc,
		scorer.WithTimeout(cfg.Encoder.Timeout()),
		scorer.WithLogger(log),
		scorer.WithEncodeObserver(gradingMetrics.EncodeObserver()),
	)
	compRepo := postgres.NewComparisonPostgres(db, cfg.Database.Timeout(), log)
	gradingSvc := service.NewGradingService(objStore, compRepo, reference.NewStore(), extractor.New(), sc,
		service.WithLogger(log),
		service.WithMetrics(gradingMetrics),
		service.WithMaxUploadBytes(int64(cfg.MaxUploadBytes())),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.BodyLimitBytes(),
	})

	// Register global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: cfg.CORSOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, " + middleware.RequestIDHeader,
		ExposeHeaders:    middleware.RequestIDHeader,
	}))
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// Structured request logs
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, gradingSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			log.Error("server shutdown failed", zap.Error(err))
		}
		if err := shutdownTracing(sctx); err != nil {
			log.Error("tracing shutdown failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	log.Info("server starting",
		zap.String("addr", addr),
		zap.String("env", cfg.Env),
		zap.String("encoder", cfg.Encoder.Provider))

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
	<-done
}
