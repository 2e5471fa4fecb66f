package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"zoombid/internal/cache"
	"zoombid/internal/config"
	"zoombid/internal/database"
	"zoombid/internal/events"
	"zoombid/internal/logger"
	"zoombid/internal/metrics"
	custommiddleware "zoombid/internal/middleware"
	"zoombid/internal/repository"
	"zoombid/internal/service"
	"zoombid/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// maxBodyBytes fits one image upload plus multipart framing
const maxBodyBytes = service.MaxImageSize + 1<<20

// Dependencies are the external resources the server is built on. Media
// may be nil when no object store is configured.
type Dependencies struct {
	DB        *sql.DB
	Redis     *redis.Client
	Publisher events.Publisher
	Media     service.MediaStore
	Mailer    service.Mailer
	Metrics   *metrics.Metrics
}

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	deps     Dependencies
	workflow *service.Workflow
}

func NewServer(cfg *config.Config, log *zap.Logger, deps Dependencies) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(log))
	router.Use(custommiddleware.LoggingMiddleware(log))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.BodyLimit(maxBodyBytes))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
		router.Handle("/metrics", deps.Metrics.Handler())
	}

	router.Get("/health", healthHandler(deps))

	// Initialize repositories
	timeout := cfg.Database.QueryTimeout
	userRepo := repository.NewUserRepository(deps.DB, timeout)
	productRepo := repository.NewProductRepository(deps.DB, timeout)
	bidRepo := repository.NewBidRepository(deps.DB, timeout)
	notificationRepo := repository.NewNotificationRepository(deps.DB, timeout)

	// Initialize services
	var views service.ViewGuard
	if deps.Redis != nil {
		views = cache.NewViewGuard(deps.Redis, cfg.Redis.ViewDedupTTL)
	}
	var observer service.DispatchObserver
	if deps.Metrics != nil {
		observer = deps.Metrics
	}

	userService := service.NewUserService(userRepo, deps.Mailer, cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpiry)*time.Minute)
	productService := service.NewProductService(productRepo, userRepo, deps.Media, views,
		service.ProductOptions{AllowReReview: cfg.Workflow.AllowProductReReview},
		logger.Component(log, "products"))
	bidService := service.NewBidService(bidRepo, productRepo,
		service.BidOptions{RequireApprovedProduct: cfg.Workflow.RequireApprovedProduct})
	notificationService := service.NewNotificationService(notificationRepo)
	dispatcher := service.NewNotificationDispatcher(notificationRepo, userRepo, observer,
		service.DispatcherOptions{
			Parallelism: cfg.Workflow.FanOutParallelism,
			Timeout:     cfg.Workflow.DispatchTimeout,
		},
		logger.Component(log, "dispatcher"))

	var publisher service.EventPublisher
	if deps.Publisher != nil {
		publisher = deps.Publisher
	}
	workflow := service.NewWorkflow(productService, bidService, dispatcher, publisher,
		service.WorkflowOptions{FanOutWait: cfg.Workflow.FanOutWait},
		logger.Component(log, "workflow"))

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, log)
	productHandler := transport.NewProductHandler(workflow, productService, log)
	bidHandler := transport.NewBidHandler(workflow, bidService, log)
	notificationHandler := transport.NewNotificationHandler(notificationService, log)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, log)

	// Register routes
	router.Group(func(r chi.Router) {
		if deps.Redis != nil {
			r.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.Redis.RateLimitRequests,
				Window:            cfg.Redis.RateLimitWindow,
				KeyPrefix:         "rate_limit",
			}, log))
		}
		userHandler.RegisterRoutes(r, authMiddleware)
		productHandler.RegisterRoutes(r, authMiddleware)
		bidHandler.RegisterRoutes(r, authMiddleware)
		notificationHandler.RegisterRoutes(r, authMiddleware)
	})

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:   cfg,
		logger:   log,
		deps:     deps,
		workflow: workflow,
	}
}

// Shutdown stops accepting requests and then waits for background
// notification fan-outs to finish
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	if werr := s.workflow.Wait(ctx); werr != nil {
		s.logger.Warn("Notification fan-outs still running at shutdown", zap.Error(werr))
		err = errors.Join(err, werr)
	}
	return err
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Publisher != nil {
		s.deps.Publisher.Close()
	}

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}

func healthHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{"status": "ok"}

		db := database.Health(r.Context(), deps.DB)
		body["database"] = db
		if db["status"] != "up" {
			status = http.StatusServiceUnavailable
		}

		if deps.Redis != nil {
			if err := deps.Redis.Ping(r.Context()).Err(); err != nil {
				body["redis"] = "down"
				status = http.StatusServiceUnavailable
			} else {
				body["redis"] = "up"
			}
		}

		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		custommiddleware.RespondWithJSON(w, status, body)
	}
}
