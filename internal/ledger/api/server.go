// Package api serves the ledger over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/trigg3rX/cipherwork/internal/ledger/websocket"
	"github.com/trigg3rX/cipherwork/pkg/logging"
)

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	AllowedOrigins []string
	Version        string
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer builds the router. hub may be nil, in which case the websocket route is not served.
func NewServer(cfg ServerConfig, l LedgerService, hub *websocket.Hub, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	logger = logger.With("component", "api")

	router := gin.New()
	router.Use(RecoveryMiddleware(logger), TraceMiddleware(logger), MetricsMiddleware())

	s := &Server{router: router, logger: logger}
	s.registerRoutes(NewHandler(l, cfg.Version), hub, cfg.RequestTimeout)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "X-Requested-With", TraceIDHeader},
		ExposedHeaders: []string{TraceIDHeader},
	})
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes(h *Handler, hub *websocket.Hub, timeout time.Duration) {
	s.router.GET("/health", h.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	if hub != nil {
		api.GET("/ws/events", websocket.NewHandler(hub, s.logger).Serve)
		api.GET("/ws/stats", func(c *gin.Context) { c.JSON(http.StatusOK, hub.Stats()) })
	}

	bounded := api.Group("", TimeoutMiddleware(timeout))
	bounded.POST("/tasks", h.CreateTask)
	bounded.GET("/tasks", h.ListTasks)
	bounded.GET("/tasks/keys", h.ListTaskKeys)
	bounded.GET("/tasks/:key", h.GetTask)
	bounded.POST("/tasks/:key/assign", h.AssignTask)
	bounded.POST("/tasks/:key/submit", h.SubmitResult)

	bounded.POST("/workers", h.RegisterWorker)
	bounded.GET("/workers", h.ListWorkers)
	bounded.GET("/workers/:identity", h.GetWorker)

	bounded.GET("/handles/:handle", h.GetHandle)
}

// Handler returns the CORS wrapped router
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Infof("Starting server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
