package bootstrap

import (
	"context"
	"log"
	"time"

	"kaleem-livechat/internal/config"
	"kaleem-livechat/internal/controller"
	"kaleem-livechat/internal/handler"
	"kaleem-livechat/internal/pkg/logger"
	"kaleem-livechat/internal/repository/contract"
	"kaleem-livechat/internal/repository/implementation"
	"kaleem-livechat/internal/repository/memory"
	"kaleem-livechat/internal/service"
	"kaleem-livechat/internal/websocket"
	"kaleem-livechat/pkg/llm/factory"
	pktNats "kaleem-livechat/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController    controller.IChatController
	ChatSocketHandler *handler.ChatSocketHandler

	ChatService service.IChatService

	// Background Services (Exposed for main.go to run). Nil in sync reply mode.
	ConsumerService service.IConsumerService

	WebSocketHub *websocket.Hub
	Logger       logger.ILogger
	ReplyMode    string

	closers []func()
}

// NewContainer wires the application. A nil db selects the in-memory
// repositories; NATS and Redis are used only when configured and reachable.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	c := &Container{ReplyMode: cfg.Chat.ReplyMode}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger
	c.closers = append(c.closers, func() { _ = sysLogger.Sync() })

	// 2. Repositories
	var (
		sessionRepo contract.ChatSessionRepository
		messageRepo contract.ChatMessageRepository
	)
	if db != nil {
		sessionRepo = implementation.NewChatSessionRepository(db)
		messageRepo = implementation.NewChatMessageRepository(db)
		log.Printf("[INFO] Using Postgres chat repositories")
	} else {
		store := memory.NewChatStore(memory.DefaultSessionTTL)
		sessionRepo = store.Sessions()
		messageRepo = store.Messages()
		log.Printf("[INFO] DB_CONNECTION_STRING not set, using in-memory chat repositories")
	}

	// 3. Infrastructure
	var eventPublisher service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	rdb := newRedisClient(cfg.App.RedisURL)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()
	c.WebSocketHub = wsHub
	c.closers = append(c.closers, wsHub.Close)

	// 4. Reply generation
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  providerBaseURL(cfg),
		APIKey:   cfg.Ai.HuggingFaceAPIKey,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	generator := service.NewReplyGenerator(llmProvider, cfg.Ai.SystemPrompt, sysLogger)

	// 5. Event Bus for async replies
	var replyQueue service.IPublisherService
	var pubSub *gochannel.GoChannel
	if cfg.Chat.ReplyMode == config.ReplyModeAsync {
		pubSub = gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewStdLogger(false, false))
		replyQueue = service.NewPublisherService(cfg.Chat.ReplyTopic, pubSub)
		c.closers = append(c.closers, func() { _ = pubSub.Close() })
	}

	// 6. Services
	c.ChatService = service.NewChatService(service.ChatServiceDeps{
		SessionRepo:   sessionRepo,
		MessageRepo:   messageRepo,
		Generator:     generator,
		Realtime:      wsHub,
		Events:        eventPublisher,
		ReplyQueue:    replyQueue,
		ReplyMode:     cfg.Chat.ReplyMode,
		HistoryWindow: cfg.Chat.HistoryWindow,
		Logger:        sysLogger,
	})
	if pubSub != nil {
		c.ConsumerService = service.NewConsumerService(pubSub, cfg.Chat.ReplyTopic, c.ChatService, sysLogger)
	}

	// 7. Controllers
	c.ChatController = controller.NewChatController(c.ChatService)
	c.ChatSocketHandler = handler.NewChatSocketHandler(wsHub, wsLogger)

	return c
}

// Close releases background resources in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func providerBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "huggingface" {
		return cfg.Ai.HuggingFaceURL
	}
	return cfg.Ai.OllamaBaseURL
}

func newRedisClient(url string) *redis.Client {
	if url == "" {
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, realtime fan-out stays local: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}
