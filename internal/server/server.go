package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/campus-awards-api/internal/config"
	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/handlers"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/middleware/auth"
	"github.com/gravadigital/campus-awards-api/internal/middleware/requestlog"
	"github.com/gravadigital/campus-awards-api/internal/services"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	router     *gin.Engine
}

// New creates a new server instance. health reports whether storage is reachable.
func New(cfg *config.Config, svc *services.Services, health func(ctx context.Context) error) *Server {
	s := &Server{config: cfg}
	s.router = s.setupRouter(svc, health)
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: s.router,

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter(svc *services.Services, health func(ctx context.Context) error) *gin.Engine {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if s.config.Server.GinMode != "" {
		gin.SetMode(s.config.Server.GinMode)
	}

	router := gin.New()
	router.Use(requestlog.New())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = config.SplitList(s.config.CORS.AllowOrigins)
	corsConfig.AllowMethods = config.SplitList(s.config.CORS.AllowMethods)
	corsConfig.AllowHeaders = config.SplitList(s.config.CORS.AllowHeaders)
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	policy := participant.NewPolicy(s.config.Auth.AllowedDomains, s.config.Auth.AdminEmails)
	authMW := auth.New(s.config.Auth.JWTSecret, s.config.Auth.Issuer, policy)

	sessionHandler := handlers.NewSessionHandler(svc, health)
	catalogHandler := handlers.NewCatalogHandler(svc, s.config.Photos.MaxFileSize)
	voteHandler := handlers.NewVoteHandler(svc)
	adminHandler := handlers.NewAdminHandler(svc)

	router.GET("/ping", sessionHandler.Ping)
	router.GET("/health", sessionHandler.Health)

	s.setupAPIRoutes(router, authMW, sessionHandler, catalogHandler, voteHandler, adminHandler)

	return router
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(
	router *gin.Engine,
	authMW *auth.Middleware,
	sessionHandler *handlers.SessionHandler,
	catalogHandler *handlers.CatalogHandler,
	voteHandler *handlers.VoteHandler,
	adminHandler *handlers.AdminHandler,
) {
	api := router.Group("/api")
	api.GET("/settings", sessionHandler.GetSettings)

	authed := api.Group("", authMW.RequireAuth())
	{
		authed.POST("/session", sessionHandler.StartSession)
		authed.GET("/me", sessionHandler.Me)
		authed.GET("/me/progress", voteHandler.GetProgress)
		authed.GET("/me/votes", voteHandler.GetMyVotes)
		authed.GET("/me/votes/:categoryId", voteHandler.GetMyVote)

		authed.GET("/categories", catalogHandler.ListCategories)
		authed.GET("/categories/:id", catalogHandler.GetCategory)
		authed.GET("/categories/:id/candidates", catalogHandler.ListCandidates)

		authed.POST("/votes", voteHandler.SubmitVote)
	}

	admin := authed.Group("/admin", authMW.RequireAdmin())
	{
		admin.POST("/categories", catalogHandler.CreateCategory)
		admin.PUT("/categories/:id", catalogHandler.UpdateCategory)
		admin.DELETE("/categories/:id", catalogHandler.DeleteCategory)

		admin.GET("/candidates", catalogHandler.ListAllCandidates)
		admin.POST("/candidates", catalogHandler.CreateCandidate)
		admin.PUT("/candidates/:id", catalogHandler.UpdateCandidate)
		admin.DELETE("/candidates/:id", catalogHandler.DeleteCandidate)
		admin.POST("/candidates/:id/photo", catalogHandler.UploadCandidatePhoto)

		admin.GET("/results", adminHandler.GetAllResults)
		admin.GET("/results/:categoryId", adminHandler.GetCategoryResults)
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/stats/voting", adminHandler.GetVotingStatistics)
		admin.GET("/setup-status", adminHandler.GetSetupStatus)

		admin.POST("/voting/open", adminHandler.OpenVoting)
		admin.POST("/voting/close", adminHandler.CloseVoting)
		admin.PUT("/voting/announcement", adminHandler.SetAnnouncement)
	}
}
