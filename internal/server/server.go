package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"municipality/internal/auth"
	"municipality/internal/cache"
	"municipality/internal/config"
	"municipality/internal/database"
	"municipality/internal/events"
	"municipality/internal/gateway"
	"municipality/internal/handlers"
	"municipality/internal/metrics"
	"municipality/internal/middleware"
	"municipality/internal/policy"
	"municipality/internal/realtime"
	"municipality/internal/repository"
	"municipality/internal/scheduler"
	"municipality/internal/service"
	"municipality/internal/storage"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

const (
	reminderTaskID  = "payment_reminders"
	shutdownTimeout = 10 * time.Second
)

// Server represents the municipality API server
type Server struct {
	config *config.Config
	logger *zap.Logger

	db        *database.Database
	store     repository.Store
	redis     *redis.Client
	cache     cache.Cache
	publisher events.Publisher
	metrics   *metrics.Collector
	hub       *realtime.Hub
	tokens    *auth.Service
	policy    *policy.Authorizer
	services  handlers.Services
	scheduler *scheduler.Scheduler

	router       *gin.Engine
	httpServer   *http.Server
	grpcServer   *grpc.Server
	healthServer *health.Server
}

// New creates a new server instance
func New(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		config: cfg,
		logger: logger.Named("server"),
	}
}

// Initialize sets up the server components
func (s *Server) Initialize() error {
	s.logger.Info("Initializing municipality server", zap.String("environment", s.config.Environment))

	if err := s.initStore(); err != nil {
		return errors.Wrap(err, "failed to initialize store")
	}
	if err := s.initInfrastructure(); err != nil {
		return errors.Wrap(err, "failed to initialize infrastructure")
	}
	if err := s.initServices(); err != nil {
		return errors.Wrap(err, "failed to initialize services")
	}
	if err := s.initScheduler(); err != nil {
		return errors.Wrap(err, "failed to initialize scheduler")
	}

	s.healthServer = health.NewServer()
	s.initHTTPServer()
	s.initGRPCServer()

	s.logger.Info("Server initialized successfully")
	return nil
}

// initStore opens the configured database. The memory driver is an empty
// sqlite database, so it is always migrated.
func (s *Server) initStore() error {
	inMemory := s.config.Database.Driver == "memory"
	if inMemory {
		s.logger.Warn("Using in-memory sqlite database; data is lost on restart")
	}

	db, err := database.Open(s.config.Database, s.config.Debug, s.logger)
	if err != nil {
		return err
	}
	if s.config.Database.AutoMigrate || inMemory {
		if err := db.AutoMigrate(); err != nil {
			db.Close()
			return err
		}
	}
	s.db = db
	s.store = repository.NewGormStore(db.DB)
	return nil
}

// initInfrastructure builds the cache, event publisher, metrics and realtime hub
func (s *Server) initInfrastructure() error {
	s.cache, s.redis = cache.New(s.config.Redis)
	if s.redis != nil {
		s.logger.Info("Using redis", zap.String("addr", s.config.Redis.Addr))
	}

	if s.config.Kafka.Enabled {
		s.publisher = events.NewKafkaPublisher(s.config.Kafka, s.logger)
		s.logger.Info("Publishing lifecycle events to kafka", zap.Strings("brokers", s.config.Kafka.Brokers))
	} else {
		s.publisher = events.Nop{}
	}

	s.metrics = metrics.NewCollector()

	opts := []realtime.Option{realtime.WithObserver(s.metrics)}
	if s.redis != nil {
		opts = append(opts, realtime.WithRedis(s.redis))
	}
	s.hub = realtime.NewHub(s.config.Notifications.ReadBufferSize, s.config.Notifications.WriteBufferSize, s.logger, opts...)

	authorizer, err := policy.New(policy.DefaultRules, s.logger)
	if err != nil {
		return err
	}
	s.policy = authorizer
	s.tokens = auth.NewService(s.config.Auth, s.cache)
	return nil
}

// initServices builds the lifecycle services
func (s *Server) initServices() error {
	gw, err := gateway.New(s.config.Payments.Gateway, s.logger)
	if err != nil {
		return err
	}

	deps := service.Deps{
		Store:     s.store,
		Publisher: s.publisher,
		Metrics:   s.metrics,
		Logger:    s.logger,
	}
	files := storage.NewLocalStorage(s.config.Storage.Root)
	notifications := service.NewNotificationService(deps, s.cache, s.hub, s.config.Notifications.StatsCacheTTL)
	s.services = handlers.Services{
		Identity:      service.NewIdentityService(deps, s.tokens, s.config.Auth),
		Requests:      service.NewRequestService(deps, notifications, files),
		Payments:      service.NewPaymentService(deps, gw, service.NewFeeTable(s.config.Payments), s.config.Payments, notifications),
		Complaints:    service.NewComplaintService(deps, notifications, files),
		Notifications: notifications,
		Attachments:   service.NewAttachmentService(deps, files, s.config.Storage.MaxFileSize),
		Announcements: service.NewAnnouncementService(deps, notifications),
		Feedback:      service.NewFeedbackService(deps),
	}
	return nil
}

// initScheduler registers the background jobs
func (s *Server) initScheduler() error {
	s.scheduler = scheduler.New(s.logger)
	if !s.config.Scheduler.Enabled {
		return nil
	}
	handler := scheduler.NewPaymentReminderHandler(s.services.Payments, s.logger)
	return s.scheduler.AddTask(reminderTaskID, s.config.Scheduler.ReminderSpec, handler)
}

// initHTTPServer initializes the HTTP server with Gin
func (s *Server) initHTTPServer() {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(middleware.CORS())
	if s.config.Metrics.Enabled {
		s.router.Use(middleware.Metrics(s.metrics))
		s.router.GET(s.config.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	handlers.NewHealthHandler(s.store, Version, s.logger).Routes(s.router)

	api := s.router.Group("/api/v1")
	if s.config.RateLimit.Enabled {
		api.Use(middleware.NewRateLimiter(s.config.RateLimit.RequestsPerMinute, s.config.RateLimit.BurstSize).Middleware())
	}
	h := handlers.New(s.services, s.policy, s.hub, s.store.AuditLogs(), s.logger)
	h.Routes(api, middleware.Auth(s.tokens, s.logger))

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", s.config.Server.HTTPPort),
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}
	s.logger.Info("HTTP server initialized", zap.Int("port", s.config.Server.HTTPPort))
}

// initGRPCServer initializes the gRPC health server
func (s *Server) initGRPCServer() {
	s.grpcServer = grpc.NewServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
	)
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.healthServer)
	if s.config.Debug {
		reflection.Register(s.grpcServer)
	}
	s.logger.Info("gRPC server initialized", zap.Int("port", s.config.Server.GRPCPort))
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until ctx is done or a listener fails, then shuts down
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting municipality server")

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)
	s.scheduler.Start()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Server.GRPCPort))
	if err != nil {
		s.scheduler.Stop()
		return errors.Wrap(err, "failed to listen for gRPC")
	}
	go func() {
		s.logger.Info("gRPC server listening", zap.String("address", lis.Addr().String()))
		if err := s.grpcServer.Serve(lis); err != nil {
			errCh <- errors.Wrap(err, "gRPC server failed")
		}
	}()

	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.Wrap(err, "HTTP server failed")
		}
	}()

	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.logger.Info("Municipality server started successfully")

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		s.logger.Error("Server failed", zap.Error(err))
		_ = s.Shutdown()
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down municipality server")
	s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
	}
	s.grpcServer.GracefulStop()
	s.scheduler.Stop()

	s.Close()
	s.logger.Info("Municipality server shutdown completed")
	return nil
}

// Close releases the publisher, redis and database connections
func (s *Server) Close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
}
