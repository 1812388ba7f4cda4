package bootstrap

import (
	"context"
	"fmt"
	"time"

	"conflict-resolution-be/internal/config"
	"conflict-resolution-be/internal/constant"
	"conflict-resolution-be/internal/controller"
	"conflict-resolution-be/internal/handler"
	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/internal/pkg/mailer"
	"conflict-resolution-be/internal/pkg/serverutils"
	"conflict-resolution-be/internal/repository/contract"
	"conflict-resolution-be/internal/repository/implementation"
	"conflict-resolution-be/internal/repository/memory"
	"conflict-resolution-be/internal/repository/unitofwork"
	"conflict-resolution-be/internal/service"
	"conflict-resolution-be/internal/websocket"
	"conflict-resolution-be/pkg/events"
	"conflict-resolution-be/pkg/llm"
	"conflict-resolution-be/pkg/llm/factory"
	pktNats "conflict-resolution-be/pkg/nats"
	"conflict-resolution-be/pkg/streambus"
	"conflict-resolution-be/pkg/textstream"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const interviewCompletedDurable = "conflict-mailer"

type Container struct {
	// Controllers
	StreamController    controller.IStreamController
	ConflictController  controller.IConflictController
	ChatController      controller.IChatController
	StreamSocketHandler *handler.StreamSocketHandler

	// Background Services (Exposed for main.go to run)
	StreamService service.IStreamService
	EventService  service.IEventService
	Bus           *streambus.Bus
	WebSocketHub  *websocket.Hub

	Logger logger.ILogger

	pubSub     *gochannel.GoChannel
	natsConn   *nats.Conn
	subscriber *pktNats.Subscriber
	rdb        *redis.Client
	wsLogger   logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
		sysLogger,
	)

	// 2. Infrastructure
	rdb := connectRedis(cfg.App.RedisURL, sysLogger)

	var busRedis *redis.Client
	if cfg.Stream.ClusterBroadcast {
		busRedis = rdb
	}
	bus := streambus.NewBus(busRedis, sysLogger)

	var lease textstream.Lease = memory.NewLeaseRepository()
	if rdb != nil {
		lease = streambus.NewRedisLease(rdb)
	}

	var streamStore contract.StreamRecordRepository
	switch cfg.Stream.Backend {
	case "memory":
		streamStore = memory.NewStreamRecordRepository()
	case "postgres":
		streamStore = implementation.NewStreamRecordRepository(db)
	default:
		return nil, fmt.Errorf("unsupported stream backend: %s", cfg.Stream.Backend)
	}
	sysLogger.Info("BOOTSTRAP", "Stream store ready", map[string]interface{}{
		"backend": cfg.Stream.Backend,
		"cluster": busRedis != nil,
	})

	// 3. Event Bus: NATS JetStream when configured, otherwise in-process.
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger.NewWatermillAdapter(sysLogger, "EVENTS"))
	var publisher service.IEventPublisher = service.NewLocalPublisher(pubSub, sysLogger)
	var natsConn *nats.Conn
	var subscriber *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		nc, js, err := pktNats.Connect(context.Background(), cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "NATS unavailable, using in-process events", map[string]interface{}{"error": err.Error()})
		} else {
			natsConn = nc
			publisher = pktNats.NewPublisher(js)
			subscriber = pktNats.NewSubscriber(js, sysLogger)
		}
	}

	// 4. LLM Provider
	baseURL := cfg.Ai.OllamaBaseURL
	if cfg.Ai.LLMProvider == "openai" {
		baseURL = cfg.Ai.OpenAIBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, cfg.Keys.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 5. Services
	conflictService := service.NewConflictService(uowFactory, streamStore, publisher, emailService, cfg.App.ClientURL, sysLogger)
	chatService := service.NewChatService(uowFactory, streamStore, sysLogger)
	llmOptions := []llm.Option{
		llm.WithTemperature(cfg.Ai.Temperature),
		llm.WithMaxTokens(cfg.Ai.MaxTokens),
	}
	interviewProducer := service.NewConflictMessageProducer(conflictService, llmProvider, sysLogger, llmOptions...)
	chatProducer := service.NewUserMessageProducer(chatService, llmProvider, sysLogger, llmOptions...)
	streamService := service.NewStreamService(
		streamStore,
		bus,
		lease,
		map[string]service.IProducerResolver{
			constant.StreamOwnerConflictMessage: interviewProducer,
			constant.StreamOwnerUserMessage:     chatProducer,
		},
		publisher,
		sysLogger,
		service.StreamServiceConfig{
			IdleTimeout:     cfg.Stream.IdleTimeout,
			ExpiryInterval:  cfg.Stream.ExpiryInterval,
			PollInterval:    cfg.Stream.PollInterval,
			LeaseTTL:        cfg.Stream.LeaseTTL,
			FinalizeTimeout: cfg.Stream.FinalizeTimeout,
		},
	)
	eventService := service.NewEventService(conflictService, sysLogger)

	// 6. WebSocket Hub
	wsHub := websocket.NewHub(wsLogger)

	// 7. Controllers
	jwtMiddleware := serverutils.NewJwtMiddleware(cfg.App.JwtSecret)
	return &Container{
		StreamController:    controller.NewStreamController(streamService, sysLogger),
		ConflictController:  controller.NewConflictController(conflictService, jwtMiddleware),
		ChatController:      controller.NewChatController(chatService, jwtMiddleware),
		StreamSocketHandler: handler.NewStreamSocketHandler(streamService, wsHub, wsLogger),

		StreamService: streamService,
		EventService:  eventService,
		Bus:           bus,
		WebSocketHub:  wsHub,
		Logger:        sysLogger,

		pubSub:     pubSub,
		natsConn:   natsConn,
		subscriber: subscriber,
		rdb:        rdb,
		wsLogger:   wsLogger,
	}, nil
}

func connectRedis(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Redis unavailable, running single instance", map[string]interface{}{"error": err.Error()})
		rdb.Close()
		return nil
	}
	return rdb
}

// StartBackground runs the bus relay, the hub, the expiry sweep and the event
// consumers until ctx is done.
func (c *Container) StartBackground(ctx context.Context) error {
	go c.Bus.Run(ctx)
	go c.WebSocketHub.Run()
	go c.StreamService.RunExpiry(ctx)

	if err := c.EventService.ConsumeLocal(ctx, c.pubSub); err != nil {
		return fmt.Errorf("failed to consume local events: %w", err)
	}
	if c.subscriber == nil {
		return nil
	}

	cc, err := c.subscriber.Subscribe(ctx, events.TypeInterviewCompleted, interviewCompletedDurable, c.EventService.Handle)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		cc.Stop()
	}()
	return nil
}

// Close releases connections. Call after the server has stopped.
func (c *Container) Close() {
	c.WebSocketHub.Stop()
	if err := c.Bus.Close(); err != nil {
		c.Logger.Warn("BOOTSTRAP", "Failed to close stream bus", map[string]interface{}{"error": err.Error()})
	}
	c.pubSub.Close()
	if c.natsConn != nil {
		c.natsConn.Drain()
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
	c.wsLogger.Sync()
	c.Logger.Sync()
}
