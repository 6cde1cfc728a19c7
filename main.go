package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"vexa-service/internal/config"
	"vexa-service/internal/db"
	"vexa-service/internal/handlers"
	"vexa-service/internal/matching"
	"vexa-service/internal/middleware"
	"vexa-service/internal/models"
	"vexa-service/internal/observability"
	"vexa-service/internal/presence"
	"vexa-service/internal/rabbitmq"
	"vexa-service/internal/relay"
	"vexa-service/internal/repositories"
	"vexa-service/internal/router"
	"vexa-service/internal/server"
	"vexa-service/internal/telemetry"
	"vexa-service/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, logCloser := observability.NewLogger(observability.LoggerOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	instanceID := uuid.NewString()
	logger = logger.With("instance_id", instanceID)

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	observability.SetPublisher(publisher)
	emitter := telemetry.NewEmitter(publisher, cfg.ServiceName, cfg.AppEnv)
	logger.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))

	var (
		users   repositories.UserRepository
		chats   repositories.ChatRepository
		closeDB func() error
	)
	if cfg.DatabaseDSN != "" {
		database, err := db.Connect(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		if cfg.IsDevelopment() {
			if err := db.Seed(ctx, database, repositories.DemoUsers()); err != nil {
				logger.Warn("seeding demo users failed", "error", err)
			}
		}
		users = repositories.NewUserRepo(database)
		chats = repositories.NewChatRepo(database)
		closeDB = database.Close
	} else {
		logger.Warn("DB_DSN not set, using in-memory store with demo users")
		store := repositories.NewMemStore(repositories.DemoUsers()...)
		users, chats = store, store
	}

	registry := presence.NewRegistry()

	var (
		mirror  ws.PresenceMirror
		cluster handlers.ClusterPresence
	)
	var redisMirror *presence.RedisMirror
	if cfg.RedisURL != "" {
		redisMirror, err = presence.NewRedisMirror(ctx, cfg.RedisURL, cfg.PresenceTTL)
		if err != nil {
			logger.Warn("presence mirror disabled", "error", err)
		} else {
			mirror, cluster = redisMirror, redisMirror
		}
	}

	routerOpts := []router.Option{router.WithEmitter(emitter)}
	var natsRelay *relay.NATSRelay
	if cfg.NATSURL != "" {
		natsRelay, err = relay.Connect(cfg.NATSURL, instanceID, logger)
		if err != nil {
			logger.Warn("cross-instance relay disabled", "error", err)
		} else {
			routerOpts = append(routerOpts, router.WithRelay(natsRelay))
		}
	}
	messageRouter := router.New(chats, registry, logger, routerOpts...)
	if natsRelay != nil {
		if err := natsRelay.Start(func(msg models.ChatMessage) { messageRouter.Deliver(msg) }); err != nil {
			return err
		}
	}

	hub := ws.NewHub()
	wsHandler := ws.NewChatWebSocketHandler(hub, registry, messageRouter, mirror, ws.Options{
		SendBuffer:            cfg.WSSendBuffer,
		WriteWait:             cfg.WSWriteWait,
		PongWait:              cfg.WSPongWait,
		MaxMessageBytes:       cfg.WSMaxMessageBytes,
		EnforceSenderIdentity: cfg.EnforceSenderIdentity,
	}, logger)

	matchHandler := handlers.NewMatchHandler(users, matching.NewScorer(nil))
	chatHandler := handlers.NewChatHandler(chats)
	presenceHandler := handlers.NewPresenceHandler(registry, cluster)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(cfg.ServiceName))
	engine.Use(middleware.RequestID(), middleware.Identity())
	engine.Use(observability.HTTPMetricsMiddleware())

	engine.GET("/ws", wsHandler.Handle)
	api := engine.Group("/api")
	api.GET("/health", handlers.Health)
	api.GET("/match/recommendations", matchHandler.Recommendations)
	api.GET("/chat/history", chatHandler.History)
	api.GET("/presence/:user_id", presenceHandler.Get)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.IsDevelopment() {
		debug := engine.Group("/debug")
		debug.GET("/audit-test", handlers.NewDebugHandler(emitter).AuditTest)
	}

	srv := server.New(engine, cfg.Addr(), cfg.ShutdownTimeout, logger)
	srv.OnShutdown("tracer", shutdownTracer)
	if closeDB != nil {
		srv.OnShutdown("database", func(context.Context) error { return closeDB() })
	}
	srv.OnShutdown("publisher", func(context.Context) error { return publisher.Close() })
	if redisMirror != nil {
		srv.OnShutdown("presence mirror", func(context.Context) error { return redisMirror.Close() })
	}
	if natsRelay != nil {
		srv.OnShutdown("relay", func(context.Context) error { return natsRelay.Close() })
	}
	srv.OnShutdown("sessions", func(context.Context) error {
		hub.CloseAll(ws.ReasonShutdown)
		return nil
	})

	return srv.Run(ctx)
}
