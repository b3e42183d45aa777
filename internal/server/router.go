// Package server assembles the HTTP router.
package server

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cliptag/backend/config"
	"github.com/cliptag/backend/internal/auth"
	"github.com/cliptag/backend/internal/export"
	"github.com/cliptag/backend/internal/frontend"
	"github.com/cliptag/backend/internal/middleware"
	"github.com/cliptag/backend/internal/sessions"
	"github.com/cliptag/backend/internal/video"
	"github.com/cliptag/backend/pkg/response"
)

// Deps are the components the router serves. Jobs and Presigner may be nil.
type Deps struct {
	Config      *config.Config
	Store       sessions.Store
	VideoSource video.Source
	Jobs        export.JobQueue
	Presigner   export.Presigner
	Logger      *zap.Logger
}

// NewRouter wires every route.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := d.Config

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.SplitOrigins()))
	router.Use(middleware.Logger(logger, "/health", "/metrics"))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Video bytes are never gzipped: compression breaks byte ranges.
	relay := video.NewRelay(d.VideoSource, logger)
	router.GET("/api/video", relay.Serve)

	sessionHandler := sessions.NewHandler(d.Store, logger)
	exportHandler := export.NewHandler(d.Store, logger)
	jobsHandler := export.NewJobsHandler(d.Jobs, d.Presigner, logger)
	jwtService := auth.NewJWTService(cfg.Admin.JWTSecret, cfg.Admin.JWTExpireHours)
	authHandler := auth.NewHandler(cfg.Admin.PasswordHash, jwtService, logger)

	api := router.Group("/api", gzip.Gzip(gzip.DefaultCompression))
	sessionHandler.Register(api)
	api.POST("/admin/login", authHandler.Login)

	// Admin routes are open unless an admin password is configured.
	admin := api.Group("")
	if cfg.Admin.Enabled() {
		admin.Use(middleware.JWT(jwtService), middleware.RequireRole(logger, auth.RoleAdmin))
	}
	{
		admin.POST("/clear", sessionHandler.ClearAll)
		admin.GET("/export/csv", exportHandler.DownloadCSV)
		admin.POST("/export/jobs", jobsHandler.Enqueue)
		admin.GET("/export/jobs/:id", jobsHandler.Status)
	}

	if cfg.Server.FrontendDist != "" {
		if err := frontend.Mount(router, cfg.Server.FrontendDist); err != nil {
			logger.Warn("frontend not served", zap.String("dir", cfg.Server.FrontendDist), zap.Error(err))
		} else {
			logger.Info("serving frontend", zap.String("dir", cfg.Server.FrontendDist))
		}
	}
	return router
}
