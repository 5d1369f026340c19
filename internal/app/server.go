// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"queueline-service/internal/config"
	"queueline-service/internal/db"
	"queueline-service/internal/domain/business"
	"queueline-service/internal/domain/queue"
	businessHandler "queueline-service/internal/handlers/business"
	queueHandler "queueline-service/internal/handlers/queue"
	wsHandler "queueline-service/internal/handlers/websocket"
	"queueline-service/internal/messaging/rabbitmq"
	"queueline-service/internal/middleware"
	"queueline-service/internal/pkg/jwt"
	"queueline-service/internal/repository/memory"
	"queueline-service/internal/repository/postgres"
	"queueline-service/internal/service/broadcast"
	"queueline-service/internal/service/events"
	"queueline-service/internal/service/notification"
	queuesvc "queueline-service/internal/service/queue"
	"queueline-service/internal/websocket"
	wsHandlers "queueline-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg        config.AppConfig
	engine     *gin.Engine
	logger     *zap.Logger
	httpServer *http.Server

	bus     *events.Bus
	cancel  context.CancelFunc
	closers []func()
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Build wires storage, services, subscribers and routes. Background workers
// run until Shutdown.
func (s *Server) Build(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	logger := s.logger

	// ----- Storage -----
	registry, directory, err := s.buildStorage(ctx)
	if err != nil {
		return err
	}

	// ----- Redis -----
	var redisClient *redis.Client
	if s.cfg.RedisAddr != "" {
		redisClient, err = db.NewRedisClient(db.RedisConfig{
			Address:  s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			DB:       s.cfg.RedisDB,
			PoolSize: 10,
		})
		if err != nil {
			logger.Warn("redis unavailable, near-front flags kept in memory and rate limiting disabled", zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("redis connected", zap.String("addr", s.cfg.RedisAddr))
			s.closers = append(s.closers, func() { _ = redisClient.Close() })
		}
	}

	// ----- Event bus + controller -----
	s.bus = events.NewBus(s.cfg.EventBufferSize, logger.Named("events"))
	queueService := queuesvc.NewQueueService(
		registry,
		directory,
		s.bus,
		logger.Named("queue"),
		queuesvc.WithDefaultServiceTime(s.cfg.DefaultServiceMinutes),
	)

	// ----- Notifications -----
	var gateway notification.Gateway = notification.NewLogGateway(logger.Named("sms"))
	if s.cfg.SMSDriver == config.SMSDriverAMQP {
		amqpGateway := rabbitmq.NewSMSGateway(s.cfg.RabbitMQURL, s.cfg.SMSQueue, logger.Named("rabbitmq"))
		s.closers = append(s.closers, func() { _ = amqpGateway.Close() })
		gateway = amqpGateway
	}

	var tracker notification.NearFrontTracker = notification.NewMemoryTracker()
	if redisClient != nil {
		tracker = notification.NewRedisTracker(redisClient, notification.DefaultTrackerTTL)
	}

	dispatcher := notification.NewDispatcher(gateway, tracker, directory, notification.DispatcherConfig{
		BaseURL:            s.cfg.BaseURL,
		NearFrontMinutes:   s.cfg.NearFrontMinutes,
		DefaultServiceTime: s.cfg.DefaultServiceMinutes,
	}, logger.Named("notification"))
	s.bus.Subscribe("notifications", dispatcher.Handle)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(logger.Named("websocket"))
	snapshotHandler := wsHandlers.NewQueueHandler(queueService)
	hub.RegisterHandler(snapshotHandler)
	hub.SetGreeter(snapshotHandler)
	go hub.Run(ctx)

	s.bus.Subscribe("broadcast", broadcast.NewBroadcaster(hub).Handle)

	// ----- Pending sweeper -----
	sweeper := queuesvc.NewPendingSweeper(queueService, s.cfg.PendingTTL, s.cfg.PendingSweepInterval, logger.Named("sweeper"))
	go sweeper.Run(ctx)

	// ----- Handlers -----
	authMiddleware := middleware.NewAuthMiddleware(jwt.NewVerifier(s.cfg.JWT.Secret, s.cfg.JWT.Issuer))
	joinLimiter := middleware.NewRateLimiter(redisClient, "join", int64(s.cfg.RateLimitJoinPerMinute), time.Minute, logger)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.AllowedOrigins),
	)

	SetupRouter(s.engine, &Handlers{
		QueueHandler:    queueHandler.NewQueueHandler(queueService),
		BusinessHandler: businessHandler.NewBusinessHandler(directory, queueService, logger),
		WSHandler:       wsHandler.NewWebSocketHandler(hub, directory, s.cfg.AllowedOrigins, logger),
		AuthMiddleware:  authMiddleware,
		JoinLimiter:     joinLimiter,
	})

	return nil
}

func (s *Server) buildStorage(ctx context.Context) (queue.Registry, business.Directory, error) {
	if s.cfg.StorageDriver != config.StoragePostgres {
		var seed []business.Business
		if s.cfg.SeedSamples {
			seed = memory.SampleBusinesses()
		}
		s.logger.Info("using in-memory storage", zap.Int("businesses", len(seed)))
		return memory.NewQueueRepository(), memory.NewBusinessRepository(seed...), nil
	}

	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.closers = append(s.closers, pool.Close)

	dbWrapper := postgres.NewDB(pool)
	if err := dbWrapper.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}

	businesses := postgres.NewBusinessRepository(dbWrapper)
	if s.cfg.SeedSamples {
		if err := businesses.Seed(ctx, memory.SampleBusinesses()); err != nil {
			return nil, nil, err
		}
	}

	s.logger.Info("using postgres storage")
	return postgres.NewQueueRepository(dbWrapper), businesses, nil
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains the event bus and releases connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.bus != nil {
		s.bus.Close()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	return err
}
