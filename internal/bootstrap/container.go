package bootstrap

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"ai-data-analyst-be/internal/config"
	"ai-data-analyst-be/internal/controller"
	"ai-data-analyst-be/internal/metrics"
	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/internal/service"
	"ai-data-analyst-be/internal/websocket"
	"ai-data-analyst-be/pkg/clarify"
	"ai-data-analyst-be/pkg/compiler"
	"ai-data-analyst-be/pkg/events"
	"ai-data-analyst-be/pkg/llm"
	"ai-data-analyst-be/pkg/llm/factory"
	"ai-data-analyst-be/pkg/report"

	pktNats "ai-data-analyst-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	AnalysisController controller.IAnalysisController
	AdminController    controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService    service.IConsumerService
	ActivityLogService *service.ActivityLogService

	AnalysisService service.IAnalysisService
	WebSocketHub    *websocket.Hub
	Metrics         *metrics.Metrics
	Logger          logger.ILogger

	closers []func()
}

// Options swaps infrastructure out, mainly for tests.
type Options struct {
	// LLMProvider replaces the provider built from config.
	LLMProvider llm.LLMProvider
	// Offline skips NATS and Redis.
	Offline bool
}

func NewContainer(cfg *config.Config) *Container {
	c, err := Build(cfg, Options{})
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	return c
}

func Build(cfg *config.Config, opts Options) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	activityLogger := logger.NewIsolatedLogger(cfg.App.ActivityLogPath)
	c.Logger = sysLogger
	c.closers = append(c.closers, func() {
		sysLogger.Sync()
		activityLogger.Sync()
	})

	if cfg.App.MetricsEnabled {
		c.Metrics = metrics.New()
	}

	// 2. Event Bus: transcript changes, orchestrator -> websocket
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	// 3. Model backend
	llmProvider := opts.LLMProvider
	if llmProvider == nil {
		var err error
		llmProvider, err = factory.NewLLMProvider(context.Background(), factory.Config{
			Provider: cfg.Ai.LLMProvider,
			Model:    cfg.Ai.LLMModel,
			BaseURL:  cfg.LLMBaseURL(),
			APIKey:   cfg.LLMAPIKey(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
		}
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	}

	queryCompiler, err := compiler.New(compiler.Strategy(cfg.Analysis.QueryStrategy), llmProvider, sysLogger)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Query strategy: %s", cfg.Analysis.QueryStrategy)

	// 4. Infrastructure
	var eventPublisher events.Publisher
	var natsSub *pktNats.Subscriber
	var rdb *redis.Client
	if !opts.Offline {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}

		rdb = connectRedis(cfg.App.RedisURL)
		if rdb != nil {
			c.closers = append(c.closers, func() { rdb.Close() })
		}
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "websocket.log"))
	c.WebSocketHub = websocket.NewHub(rdb, uuid.NewString(), wsLogger)
	go c.WebSocketHub.Run()
	c.closers = append(c.closers, c.WebSocketHub.Stop)

	// 5. Services
	activity := service.NewActivityRecorder(c.Metrics, eventPublisher, sysLogger)
	c.AnalysisService = service.NewAnalysisService(service.PipelineConfig{
		Resolver:    clarify.NewResolver(llmProvider, cfg.Analysis.ClarifyHistoryWindow, sysLogger),
		Compiler:    queryCompiler,
		Reporter:    report.NewReporter(llmProvider, report.Options{PieThreshold: cfg.Analysis.ChartPieThreshold, MaxSummaryRows: cfg.Analysis.ReportMaxRows}, sysLogger),
		Notifier:    service.NewTranscriptPublisher(pubSub, service.TranscriptTopic, sysLogger),
		Activity:    activity,
		Logger:      sysLogger,
		QueueDepth:  cfg.Analysis.EngineQueueDepth,
		SessionTTL:  cfg.Analysis.SessionTTL,
		SummaryRows: cfg.Analysis.ReportMaxRows,
	})
	// sessions first: closing them still publishes transcript and activity events
	c.closers = append([]func(){c.AnalysisService.Shutdown}, c.closers...)

	c.ConsumerService = service.NewConsumerService(pubSub, service.TranscriptTopic, c.WebSocketHub, sysLogger)
	if natsSub != nil {
		c.ActivityLogService = service.NewActivityLogService(natsSub, activityLogger)
	}

	logService := service.NewLogService(map[string]logger.ILogger{
		"system":   sysLogger,
		"activity": activityLogger,
	})

	// 6. Controllers
	c.AnalysisController = controller.NewAnalysisController(c.AnalysisService, c.WebSocketHub, sysLogger)
	c.AdminController = controller.NewAdminController(logService)

	return c, nil
}

func connectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, websocket fan-out stays local: %v", err)
		rdb.Close()
		return nil
	}
	return rdb
}

func (c *Container) SessionCount() int {
	if c.AnalysisService == nil {
		return 0
	}
	return c.AnalysisService.SessionCount()
}

// Close releases sessions, connections and buses in order.
func (c *Container) Close() {
	for _, closeFn := range c.closers {
		closeFn()
	}
}
