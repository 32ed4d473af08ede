package bootstrap

import (
	"context"
	"log"

	"ai-proposalgen-be/internal/config"
	"ai-proposalgen-be/internal/controller"
	"ai-proposalgen-be/internal/handler"
	"ai-proposalgen-be/internal/pkg/lock"
	"ai-proposalgen-be/internal/pkg/logger"
	"ai-proposalgen-be/internal/prompt"
	"ai-proposalgen-be/internal/repository/implementation"
	"ai-proposalgen-be/internal/repository/memory"
	"ai-proposalgen-be/internal/repository/unitofwork"
	"ai-proposalgen-be/internal/service"
	"ai-proposalgen-be/internal/websocket"
	"ai-proposalgen-be/pkg/llm/factory"
	"ai-proposalgen-be/pkg/workflow/checkpoint"
	"ai-proposalgen-be/pkg/workflow/engine"
	"ai-proposalgen-be/pkg/workflow/graph"
	"ai-proposalgen-be/pkg/workflow/interrupt"
	"ai-proposalgen-be/pkg/workflow/state"

	pktNats "ai-proposalgen-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	WorkflowController controller.IWorkflowController
	SessionController  controller.ISessionController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	SessionService  service.ISessionService

	// WebSockets
	SocketHandler *handler.WorkflowSocketHandler
	WebSocketHub  *websocket.Hub
}

// defaultSectionGraph is the proposal structure used when a job does not
// supply its own required sections.
func defaultSectionGraph() map[state.SectionID][]state.SectionID {
	return map[state.SectionID][]state.SectionID{
		"problem_statement": {},
		"objectives":        {"problem_statement"},
		"methodology":       {"problem_statement", "objectives"},
		"timeline":          {"methodology"},
		"budget":            {"methodology"},
		"impact":            {"objectives", "methodology"},
	}
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Workflow Core
	sectionGraph, err := graph.New(defaultSectionGraph())
	if err != nil {
		log.Fatalf("[FATAL] Invalid section dependency graph: %v", err)
	}

	composer := prompt.NewComposer(sectionGraph)
	generators := engine.NewGeneratorTable(
		engine.NewLLMGenerator(llmProvider, composer.Research),
		engine.NewLLMGenerator(llmProvider, composer.Solution),
		engine.NewLLMGenerator(llmProvider, composer.Connections),
		engine.NewLLMGenerator(llmProvider, composer.Section),
	)
	evaluator := engine.NewLLMEvaluator(llmProvider, composer.Evaluation, cfg.Workflow.PassThreshold)

	wfEngine := engine.New(sectionGraph, generators, evaluator, engine.Config{
		MaxRetries:        cfg.Workflow.MaxRetries,
		ReviewRequired:    cfg.Workflow.ReviewRequired,
		GenerationTimeout: cfg.Workflow.GenerationTimeout,
	}, sysLogger)

	// Checkpoints: Postgres is the durable store, Redis the read-through
	// cache in front of it.
	var checkpointStore checkpoint.Store = implementation.NewGormCheckpointStore(db)
	if rdb != nil {
		checkpointStore = checkpoint.NewCachedStore(rdb, checkpointStore, cfg.Workflow.CheckpointCacheTTL)
	}

	sessionCache := memory.NewSessionCache(cfg.Session.CacheTTL)

	// 4. Services
	publisherService := service.NewPublisherService(cfg.App.OpsTopic, pubSub)

	var eventPublisher service.IEventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}

	// One mutex map serializes every mutation of a thread: workflow steps,
	// user operations, and sweeper closes.
	threadLocks := lock.NewMutexMap()

	sessionService := service.NewSessionService(
		uowFactory,
		sessionCache,
		checkpointStore,
		threadLocks,
		eventPublisher,
		service.SessionConfig{
			IdleTimeout:   cfg.Session.IdleTimeout,
			MaxLifetime:   cfg.Session.MaxLifetime,
			SweepInterval: cfg.Session.SweepInterval,
		},
		sysLogger,
	)

	workflowService := service.NewWorkflowService(
		wfEngine,
		interrupt.NewController(),
		checkpointStore,
		threadLocks,
		uowFactory,
		sessionService,
		eventPublisher,
		publisherService,
		sysLogger,
	)

	// Notification Relay (Worker)
	if natsSub != nil {
		notifService := service.NewNotificationService(natsSub, wsHub, wsLogger) // Hub implements NotificationDelivery
		go notifService.Start()
	}

	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.OpsTopic,
		workflowService,
	)

	socketHandler := handler.NewWorkflowSocketHandler(wsHub, wsLogger)

	// 5. Controllers
	return &Container{
		WorkflowController: controller.NewWorkflowController(workflowService),
		SessionController:  controller.NewSessionController(sessionService),

		ConsumerService: consumerService,
		SessionService:  sessionService,

		SocketHandler: socketHandler,
		WebSocketHub:  wsHub,
	}
}
