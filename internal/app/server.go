package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"guestreport_client/internal/auth"
	"guestreport_client/internal/common"
	"guestreport_client/internal/config"
	"guestreport_client/internal/geography"
	"guestreport_client/internal/jobs"
	"guestreport_client/internal/middleware"
	"guestreport_client/internal/shared"
	"guestreport_client/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the dev backend HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	keyRefreshJob *jobs.KeyRefreshJob
}

// NewServer builds the router and mounts every module under /api.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	userHandler *user.Handler,
	authHandler *auth.Handler,
	geographyHandler *geography.Handler,
	tokenService shared.TokenService,
	keyRefreshJob *jobs.KeyRefreshJob,
) *Server {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	router.Use(middleware.ZapLogger(logger.Named("http"), cfg.GinMode))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	authMW := middleware.AuthMiddleware(tokenService, logger.Named("AuthMiddleware"))
	adminRoleMW := middleware.RoleAuthMiddleware(common.RoleAdmin)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "GuestReport dev backend is healthy!"})
	})

	api := router.Group("/api")
	authHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api, authMW)
	geographyHandler.RegisterRoutes(api, authMW, adminRoleMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		cfg:        cfg,
		logger:     logger,

		keyRefreshJob: keyRefreshJob,
	}
}

// Handler exposes the router, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs background jobs and serves until Shutdown.
func (s *Server) Start() error {
	if s.keyRefreshJob != nil {
		if err := s.keyRefreshJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to start Google key refresh job", zap.Error(err))
		}
	}
	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.keyRefreshJob != nil {
		s.keyRefreshJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
