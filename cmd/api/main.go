package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/agents"
	"github.com/brand-agent/backend/internal/alerts"
	"github.com/brand-agent/backend/internal/analysis"
	"github.com/brand-agent/backend/internal/api/handlers"
	"github.com/brand-agent/backend/internal/approval"
	"github.com/brand-agent/backend/internal/cache/redis"
	"github.com/brand-agent/backend/internal/collect"
	"github.com/brand-agent/backend/internal/knowledge"
	"github.com/brand-agent/backend/internal/llm"
	"github.com/brand-agent/backend/internal/metrics"
	"github.com/brand-agent/backend/internal/middleware/ratelimit"
	"github.com/brand-agent/backend/internal/middleware/security"
	"github.com/brand-agent/backend/internal/middleware/validation"
	"github.com/brand-agent/backend/internal/monitor"
	"github.com/brand-agent/backend/internal/publish"
	"github.com/brand-agent/backend/internal/response"
	"github.com/brand-agent/backend/internal/risk"
	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/internal/storage/sqlite"
	"github.com/brand-agent/backend/internal/workflow"
	"github.com/brand-agent/backend/pkg/config"
	appLogger "github.com/brand-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Brand Reputation Agent API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var redisClient *redis.Client
	var deduper workflow.Deduper
	var brandCache handlers.BrandCache
	var reportCache handlers.ReportCache
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		deduper = redisClient
		brandCache = redisClient
		reportCache = redisClient
	}

	var llmClient *llm.Client
	var sentimentClient analysis.SentimentClient
	var responseClient response.ResponseClient
	if cfg.LLM.APIKey != "" {
		llmClient = llm.NewClient(
			cfg.LLM.APIKey,
			cfg.LLM.Model,
			cfg.LLM.EmbeddingModel,
			cfg.LLM.Temperature,
			cfg.LLM.MaxTokens,
			time.Duration(cfg.LLM.TimeoutSec)*time.Second,
		)
		sentimentClient = llmClient
		responseClient = llmClient
	} else {
		appLogger.Warn("LLM API key not configured, using lexical analysis and template responses")
	}

	var retriever response.Retriever
	if cfg.Knowledge.Enabled && llmClient != nil {
		store, err := knowledge.NewStore(
			cfg.Knowledge.Endpoint,
			cfg.Knowledge.APIKey,
			cfg.Knowledge.CollectionName,
			cfg.Knowledge.VectorDim,
			llmClient,
		)
		if err != nil {
			appLogger.Fatal("Failed to create knowledge store", zap.Error(err))
		}
		defer store.Close()

		if err := store.EnsureCollection(context.Background()); err != nil {
			appLogger.Fatal("Failed to ensure knowledge collection", zap.Error(err))
		}
		if redisClient != nil {
			store.SetEmbeddingCache(redisClient)
		}
		retriever = store
	}

	fetchTimeout := time.Duration(cfg.Sources.FetchTimeoutSec) * time.Second
	collector := collect.NewCollector(
		fetchTimeout,
		collect.NewTwitterFetcher(cfg.Sources.TwitterBearerToken, fetchTimeout),
		collect.NewRedditFetcher(fetchTimeout),
		collect.NewNewsFetcher(fetchTimeout),
		collect.NewMetaFetcher(models.PlatformFacebook, cfg.Sources.FacebookAccessToken, fetchTimeout),
		collect.NewMetaFetcher(models.PlatformInstagram, cfg.Sources.InstagramToken, fetchTimeout),
	)

	analyzer := analysis.NewAnalyzer(sentimentClient)
	generator := response.NewGenerator(responseClient, retriever)
	publisher := publish.NewPublisher(cfg.Sources.TwitterBearerToken == "")

	registry := agents.NewRegistry()
	for _, worker := range []agents.Worker{
		workflow.NewCollectorWorker(collector, deduper),
		workflow.NewAnalyzerWorker(analyzer),
		workflow.NewResponderWorker(generator),
	} {
		if err := registry.Register(worker); err != nil {
			appLogger.Fatal("Failed to register worker", zap.String("worker", worker.ID()), zap.Error(err))
		}
	}
	dispatcher := agents.NewDispatcher(registry)

	alertEngine := alerts.NewEngine(alerts.Config{
		SentimentConfidenceThreshold: cfg.Alerts.NegativeSentimentThreshold,
		VolumeThreshold:              cfg.Alerts.CrisisMentionThreshold,
		VolumeSpikeMultiplier:        cfg.Alerts.VolumeSpikeMultiplier,
		DeteriorationDelta:           cfg.Alerts.SentimentDeteriorationDelta,
	})

	orchestrator := workflow.NewOrchestrator(
		dispatcher,
		alertEngine,
		risk.NewScorer(),
		approval.NewPolicy(cfg.Approval.AutoApproveThreshold, cfg.Approval.HumanReviewThreshold),
		publisher,
	)

	alertHub := handlers.NewAlertHub()

	var monitorService *monitor.Service
	sink := func(report *models.WorkflowReport) {
		if err := sqliteClient.InsertWorkflowRun(report); err != nil {
			appLogger.Error("Failed to persist workflow run", zap.Error(err))
		}

		for i := range report.Responses {
			resp := &report.Responses[i]
			if resp.Approval == nil {
				continue
			}
			if err := sqliteClient.InsertApprovalDecision(report.WorkflowID, resp); err != nil {
				appLogger.Error("Failed to persist approval decision", zap.Error(err))
			}
			metrics.ApprovalDecisions.WithLabelValues(resp.Approval.Status).Inc()
			metrics.RiskScore.Observe(resp.Approval.RiskAnalysis.OverallRiskScore)
		}

		for i := range report.Alerts {
			alert := report.Alerts[i]
			if err := sqliteClient.InsertAlert(&alert); err != nil {
				appLogger.Error("Failed to persist alert", zap.Error(err))
			}
			alertHub.Broadcast(alert)
			metrics.AlertsTriggered.WithLabelValues(alert.Type, alert.Severity.String()).Inc()
		}

		metrics.WorkflowTotal.WithLabelValues(report.Status).Inc()
		metrics.WorkflowDuration.WithLabelValues(report.Status).Observe(float64(report.DurationMS) / 1000)
		metrics.CrisisScore.WithLabelValues(report.BrandID).Set(report.Crisis.Score)
		if monitorService != nil {
			metrics.MonitoredBrands.Set(float64(len(monitorService.Status())))
		}

		if redisClient != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := redisClient.SetReport(ctx, report.BrandID, report, time.Hour); err != nil {
				appLogger.Warn("Failed to cache report", zap.Error(err))
			}
			if err := redisClient.IncrementCounter(ctx, "workflow_runs"); err != nil {
				appLogger.Warn("Failed to increment cycle counter", zap.Error(err))
			}
			if err := redisClient.IncrementCounter(ctx, "cycles:"+report.BrandID); err != nil {
				appLogger.Warn("Failed to increment brand cycle counter", zap.Error(err))
			}
		}
	}

	monitorService = monitor.NewService(
		orchestrator,
		time.Duration(cfg.Monitoring.CheckIntervalSec)*time.Second,
		sink,
	)
	defer monitorService.StopAll()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		ExemptPaths:          []string{"/api/v1/health", "/api/v1/ready", "/metrics"},
		Logger:               appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()
	app.Use(rateLimiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	brandHandler := handlers.NewBrandHandler(sqliteClient, brandCache)
	monitoringHandler := handlers.NewMonitoringHandler(monitorService, sqliteClient, reportCache)
	alertsHandler := handlers.NewAlertsHandler(alertEngine, sqliteClient)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")

	api.Post("/brands", brandHandler.CreateBrand)
	api.Get("/brands", brandHandler.ListBrands)
	api.Get("/brands/:id", brandHandler.GetBrand)
	api.Delete("/brands/:id", brandHandler.DeleteBrand)

	api.Post("/monitoring/start", monitoringHandler.StartMonitoring)
	api.Post("/monitoring/stop", monitoringHandler.StopMonitoring)
	api.Get("/monitoring/status", monitoringHandler.GetStatus)
	api.Get("/monitoring/health", monitoringHandler.GetHealth)
	api.Post("/monitoring/:id/stop", monitoringHandler.StopMonitoring)
	api.Get("/monitoring/:id/status", monitoringHandler.GetBrandStatus)
	api.Post("/monitoring/:id/trigger", monitoringHandler.TriggerCycle)
	api.Get("/monitoring/:id/reports", monitoringHandler.GetReports)

	api.Post("/autonomous/trigger", monitoringHandler.TriggerCycle)

	api.Get("/alerts", alertsHandler.GetActiveAlerts)
	api.Get("/alerts/active", alertsHandler.GetActiveAlerts)
	api.Get("/alerts/history", alertsHandler.GetAlertHistory)
	api.Get("/alerts/statistics", alertsHandler.GetStatistics)
	api.Post("/alerts/:id/acknowledge", alertsHandler.AcknowledgeAlert)
	api.Post("/alerts/:id/resolve", alertsHandler.ResolveAlert)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/alerts", websocket.New(alertHub.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	monitorService.StopAll()
	app.Shutdown()
	appLogger.Info("Server stopped")
}
