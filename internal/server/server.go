// Package server wires the HTTP surface: routing, middleware and handlers.
package server

import (
	"context"
	"sync"
	"time"

	"plume/internal/cache"
	"plume/internal/config"
	"plume/internal/database"
	"plume/internal/middleware"
	"plume/internal/repository"
	"plume/internal/service"

	_ "plume/docs"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	promOnce sync.Once
	promMW   *fiberprometheus.FiberPrometheus
)

// prometheusMiddleware builds the shared HTTP metrics middleware once; its
// collectors register globally and must not be created per server instance.
func prometheusMiddleware() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMW = fiberprometheus.New("plume")
	})
	return promMW
}

// Server holds the application dependencies for the HTTP layer.
type Server struct {
	app   *fiber.App
	cfg   *config.Config
	db    *gorm.DB
	posts *service.PostService
	users repository.UserRepository
}

// NewServer connects the backing stores and assembles a ready-to-listen
// server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db), nil
}

// NewServerWithDeps assembles a server on pre-built dependencies. Tests use it
// with an in-memory database and no cache.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB) *Server {
	middleware.InitMiddleware(cfg)

	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)

	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:      "plume",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}),
		cfg:   cfg,
		db:    db,
		posts: service.NewPostService(postRepo, userRepo, cfg),
		users: userRepo,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	s.app.Use(middleware.ContextMiddleware())
	s.app.Use(helmet.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	prom := prometheusMiddleware()
	prom.RegisterAt(s.app, "/metrics")
	s.app.Use(prom.Middleware)

	s.app.Use(middleware.StructuredLogger())
}

func (s *Server) setupRoutes() {
	s.app.Get("/health/live", s.handleLiveness)
	s.app.Get("/health/ready", s.handleReadiness)
	s.app.Get("/swagger/*", swagger.HandlerDefault)

	api := s.app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", s.handleRegister)
	auth.Post("/login", s.handleLogin)
	auth.Get("/me", middleware.AuthRequired, s.handleMe)

	api.Get("/users/:id", s.handleGetUser)

	posts := api.Group("/posts")
	posts.Get("/", middleware.OptionalAuth, s.handleListPosts)
	posts.Get("/popular", middleware.OptionalAuth, s.handlePopularPosts)
	posts.Get("/search", middleware.OptionalAuth,
		middleware.RateLimit(cache.GetClient(), 30, time.Minute, "post-search"),
		s.handleSearchPosts)

	posts.Post("/", middleware.AuthRequired, s.handleCreatePost)
	posts.Get("/:id", middleware.OptionalAuth, s.handleGetPost)
	posts.Put("/:id", middleware.AuthRequired, s.handleUpdatePost)
	posts.Delete("/:id", middleware.AuthRequired, s.handleDeletePost)
	posts.Get("/:id/replies", middleware.OptionalAuth, s.handleListReplies)

	posts.Post("/:id/like", middleware.AuthRequired, s.handleLikePost)
	posts.Post("/:id/retweet", middleware.AuthRequired, s.handleRetweetPost)
	// Impression and click tracking is anonymous by nature.
	posts.Post("/:id/impression", middleware.OptionalAuth, s.handleImpression)
	posts.Post("/:id/click", middleware.OptionalAuth, s.handleClick)
}

func (s *Server) handleLiveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleReadiness(c *fiber.Ctx) error {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.UserContext())
	}
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  "database unreachable",
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	return s.app.Listen(":" + s.cfg.Port)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
