// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"citypulse/internal/ai"
	"citypulse/internal/cache"
	"citypulse/internal/config"
	"citypulse/internal/database"
	"citypulse/internal/featureflags"
	"citypulse/internal/localstore"
	"citypulse/internal/middleware"
	"citypulse/internal/models"
	"citypulse/internal/notifications"
	"citypulse/internal/repository"
	"citypulse/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config      *config.Config
	db          *gorm.DB
	redis       *redis.Client
	app         *fiber.App
	shutdownCtx context.Context
	shutdownFn  context.CancelFunc

	issueRepo   repository.IssueRepository
	profileRepo repository.ProfileRepository
	store       *localstore.Store
	notifier    *notifications.Notifier
	hub         *notifications.Hub

	postService    *service.PostService
	profileService *service.ProfileService
	aiService      *service.AIService
	mediaService   *service.MediaService

	flags            *featureflags.Manager
	demoPasswordHash []byte
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	var gen ai.Generator
	if cfg.GeminiAPIKey != "" {
		client, aiErr := ai.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if aiErr != nil {
			log.Printf("AI client unavailable: %v (assistant features degraded)", aiErr)
		} else {
			gen = client
		}
	}

	return NewServerWithDeps(cfg, db, redisClient, gen)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis first.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, gen ai.Generator) (*Server, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required for the local interaction store")
	}

	demoHash, err := bcrypt.GenerateFromPassword([]byte(cfg.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing demo password: %w", err)
	}

	server := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		flags:            featureflags.NewManager(cfg.FeatureFlags),
		demoPasswordHash: demoHash,
	}

	if db != nil {
		server.issueRepo = repository.NewIssueRepository(db)
		server.profileRepo = repository.NewProfileRepository(db)
	}

	cache.SetClient(redisClient)
	server.notifier = notifications.NewNotifier(redisClient)
	server.store = localstore.NewStore(redisClient, server.notifier)
	server.hub = notifications.NewHub()

	server.postService = service.NewPostService(server.issueRepo, server.profileRepo, server.store, server.notifier, cfg.StorageBaseURL)
	server.profileService = service.NewProfileService(server.profileRepo, server.issueRepo, cfg.StorageBaseURL)
	server.aiService = service.NewAIService(gen, server.issueRepo)
	server.mediaService = service.NewMediaService(cfg)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.MetricsMiddleware())

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	app.Use(middleware.TracingMiddleware())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "CityPulse Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)
	auth.Get("/me", middleware.AuthRequired, s.Me)

	// Public post routes (browse/search)
	posts := api.Group("/posts")
	posts.Get("/", s.GetFeed)
	posts.Get("/search", middleware.RateLimit(
		s.redis, 10, time.Minute, "search"), s.SearchPosts)
	posts.Get("/:id", s.GetPost)

	// Post mutations (any session may react; the state is session-local)
	posts.Post("/", s.UpsertLocalPost)
	posts.Put("/:id", s.UpdateLocalPost)
	posts.Post("/:id/like", s.LikePost)
	posts.Post("/:id/dislike", s.DislikePost)
	posts.Post("/:id/share", s.SharePost)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 15, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:id", middleware.AuthRequired, s.DeletePost)

	// Status changes are an admin operation
	posts.Put("/:id/status", middleware.AuthRequired, middleware.AdminRequired, s.SetPostStatus)

	// Issue reporting
	issues := api.Group("/issues", middleware.AuthRequired)
	issues.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_issue"), s.CreateIssue)
	issues.Get("/mine", s.GetMyReports)

	// Profiles
	profiles := api.Group("/profiles")
	profiles.Get("/leaderboard", s.GetLeaderboard)
	profiles.Get("/me", middleware.AuthRequired, s.GetMyProfile)
	profiles.Put("/me", middleware.AuthRequired, s.UpdateMyProfile)
	profiles.Get("/:id", s.GetProfile)

	// AI assistant
	aiGroup := api.Group("/ai")
	aiGroup.Post("/analyze-image", middleware.RateLimit(
		s.redis, 5, time.Minute, "analyze_image"), s.AnalyzeImage)
	aiGroup.Post("/chat", middleware.RateLimit(
		s.redis, 20, time.Minute, "ai_chat"), s.Chat)

	// Photo upload and serving
	media := api.Group("/media")
	media.Post("/photos", middleware.AuthRequired, s.UploadPhotos)
	app.Get("/media/i/:hash/:file", s.ServePhoto)

	// Websocket feed events
	ws := api.Group("/ws", UpgradeRequired, middleware.WebSocketAuthRequired)
	ws.Get("/feed", s.WebSocketFeedHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The local interaction store lives in Redis, so it is required.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	// The feed degrades without the database but cannot run without Redis.
	if redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "CityPulse",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName:   "CityPulse API",
		BodyLimit: 12 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	middleware.InitMetrics(app)
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	go func() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			log.Printf("failed to start feed hub wiring: %v", err)
		}
	}()

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				log.Printf("error closing sql DB: %v", cerr)
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
