// Package api exposes the journal and its analytics over a JSON HTTP API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trade-journal/internal/journal"
	"trade-journal/internal/pricefeed"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr           string
	ProductionMode bool
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	journal    *journal.Service
	prices     pricefeed.PriceSource // nil disables /api/price
	config     ServerConfig
	logger     zerolog.Logger
	started    time.Time
}

// NewServer creates a new API server
func NewServer(config ServerConfig, svc *journal.Service, prices pricefeed.PriceSource, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	server := &Server{
		router:  router,
		journal: svc,
		prices:  prices,
		config:  config,
		logger:  logger.With().Str("component", "api").Logger(),
		started: time.Now(),
	}
	router.Use(server.requestLogger())

	server.setupRoutes()
	server.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	api.GET("/health", s.handleHealth)

	api.GET("/trades", s.handleListTrades)
	api.POST("/trades", s.handleOpenTrade)
	api.DELETE("/trades", s.handleBulkDelete)
	api.POST("/trades/undo", s.handleUndo)
	api.GET("/trades/options", s.handleFilterOptions)
	api.POST("/trades/:id/close", s.handleCloseTrade)
	api.POST("/trades/:id/review", s.handleReviewTrade)

	api.GET("/metrics", s.handleMetrics)
	api.GET("/rank", s.handleRank)
	api.GET("/breakdown/:by", s.handleBreakdown)
	api.GET("/calendar/:year/:month", s.handleCalendar)
	api.POST("/size", s.handleSize)

	api.POST("/import", s.handleImport)
	api.GET("/export", s.handleExport)

	api.GET("/accounts", s.handleListAccounts)
	api.POST("/accounts", s.handleAddAccount)
	api.GET("/balance", s.handleBalance)
	api.POST("/transactions", s.handleTransaction)
	api.GET("/risk", s.handleRisk)

	if s.prices != nil {
		api.GET("/price/:symbol", s.handlePrice)
	}

	s.router.NoRoute(func(c *gin.Context) {
		errorResponse(c, http.StatusNotFound, "Not found")
	})
}

// requestLogger logs every request through zerolog.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := s.logger.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.Addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.journal.Store().ListAccounts(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "healthy",
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
