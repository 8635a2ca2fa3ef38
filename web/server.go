package web

import (
	"context"
	"net/http"
	"time"

	"kydx-console/config"
	"kydx-console/web/handlers"
	"kydx-console/web/middleware"
	"kydx-console/web/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router   *gin.Engine
	sessions *services.SessionService
	limiter  *middleware.SessionRateLimiter
	cleanup  *CleanupService
	logger   *zap.Logger
	config   *config.Config
}

func NewServer(sessions *services.SessionService, logger *zap.Logger, config *config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set("logger", logger)
		c.Next()
	})

	server := &Server{
		router:   router,
		sessions: sessions,
		limiter: middleware.NewSessionRateLimiter(middleware.RateLimiterConfig{
			MessagesPerMinute: config.RateLimitMessagesPerMin,
			BurstSize:         config.RateLimitBurstSize,
			CleanupInterval:   config.RateLimitCleanup,
		}, logger),
		cleanup: NewCleanupService(sessions, logger),
		logger:  logger,
		config:  config,
	}

	if err := server.setupRoutes(); err != nil {
		server.limiter.Stop()
		return nil, err
	}
	return server, nil
}

func (s *Server) setupRoutes() error {
	charts, err := handlers.ChartsProxy(s.config.BackendURL, s.logger)
	if err != nil {
		return err
	}
	s.router.GET("/charts/*path", charts)
	s.router.HEAD("/charts/*path", charts)

	chatHandler := handlers.NewChatHandler(s.sessions, s.logger)

	app := s.router.Group("/", middleware.SessionMiddleware())
	app.GET("/", chatHandler.Index)

	api := app.Group("/api")
	api.GET("/session", chatHandler.GetSession)
	api.GET("/messages/html", chatHandler.MessagesHTML)

	limited := api.Group("", middleware.RateLimitMiddleware(s.limiter))
	limited.POST("/session/reset", chatHandler.ResetSession)
	limited.POST("/session/data-loaded", chatHandler.DataLoaded)
	limited.POST("/messages", chatHandler.SendMessage)
	limited.POST("/actions/:name", chatHandler.TriggerAction)
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops background workers.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) Start(ctx context.Context, addr string) error {
	defer s.Close()
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go s.cleanup.Run(ctx, s.config.SessionCleanupInterval, s.config.SessionMaxIdle)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	s.logger.Info("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
