// Package api exposes the analysis pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-server/internal/domain"
	"github.com/pharmaguard/pgx-server/internal/feedback"
	"github.com/pharmaguard/pgx-server/internal/middleware"
	"github.com/pharmaguard/pgx-server/internal/ml"
	"github.com/pharmaguard/pgx-server/internal/reference"
	"github.com/pharmaguard/pgx-server/internal/service"
)

// Version is the API version reported by the health endpoint.
const Version = "1.0.0"

// Server is the HTTP front end over the analysis pipeline.
type Server struct {
	cfg      *domain.Config
	pipeline *service.Pipeline
	store    *reference.Store
	model    ml.ModelState
	feedback feedback.Store
	logger   *logrus.Logger
	router   *gin.Engine
	server   *http.Server
}

// NewServer wires the routes and middleware chain. fbStore may be nil when
// the feedback store is disabled; its routes are then not registered.
func NewServer(
	cfg *domain.Config,
	pipeline *service.Pipeline,
	store *reference.Store,
	model ml.ModelState,
	fbStore feedback.Store,
	logger *logrus.Logger,
) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())

	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		store:    store,
		model:    model,
		feedback: fbStore,
		logger:   logger,
		router:   router,
	}
	s.setupRoutes()
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithFields(logrus.Fields{
		"addr":       addr,
		"model_mode": s.model.Mode,
	}).Info("HTTP server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	limiter := middleware.NewRateLimiter(s.cfg.RateLimit)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", limiter.Middleware(), s.handleAnalyze)
		v1.GET("/drugs", s.handleSupportedDrugs)

		if s.feedback != nil {
			v1.POST("/feedback", s.handleSaveFeedback)
			v1.GET("/feedback", s.handleListFeedback)
			v1.GET("/feedback/export", s.handleExportFeedback)
			v1.DELETE("/feedback/:id", s.handleDeleteFeedback)
		}
	}
}
