// Package server implements storyd, the development story backend.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alkime/storytime/internal/config"
	"github.com/alkime/storytime/internal/generate"
	"github.com/alkime/storytime/internal/story"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxUploadBytes bounds narration uploads.
const maxUploadBytes = 64 << 20

// StoryStore persists stories.
type StoryStore interface {
	Insert(ctx context.Context, st story.Story) error
	List(ctx context.Context) ([]story.Summary, error)
	Get(ctx context.Context, id story.ID) (story.Story, error)
}

// Generator produces story content from narration.
type Generator interface {
	Generate(ctx context.Context, audio generate.Audio, title string) (generate.Result, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Store     StoryStore
	Generator Generator
	// AudioDir holds uploaded narration served under /audio.
	AudioDir string

	// Optional, for tests.
	Now   func() time.Time
	NewID func() string
}

// Server represents the HTTP server
type Server struct {
	config *config.ServerConfig
	logger *slog.Logger
	router *gin.Engine
	deps   Deps
}

// New creates a new Server instance
func New(cfg *config.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.MaxMultipartMemory = maxUploadBytes

	server := &Server{
		config: cfg,
		logger: logger,
		router: router,
		deps:   deps,
	}

	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the handler for tests and custom listeners.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the HTTP server
func Run(s *Server) error {
	s.logger.Info("Server listening", "port", s.config.Port)
	return s.router.Run(":" + s.config.Port)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/stories", s.handleListStories)
		api.GET("/stories/:id", s.handleGetStory)
		api.POST("/stories", s.handleCreateStory)
	}

	// Stored narration. static.Serve falls through when the file is missing.
	s.router.Use(static.Serve(audioPrefix, static.LocalFile(s.deps.AudioDir, false)))

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
	})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "storyd",
	})
}
