// Package server exposes the journal as a JSON API on localhost for browser
// front ends.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mindful-trader/internal/journal"
	"mindful-trader/internal/stream"
)

const shutdownTimeout = 5 * time.Second

// Config configures a Server.
type Config struct {
	Addr string
	// Mode is the gin mode: debug, release or test.
	Mode string
	// DefaultTimeframe pre-fills new trades that leave it blank.
	DefaultTimeframe string
}

// Server serves the journal API.
type Server struct {
	journal *journal.Journal
	cfg     Config
	logger  zerolog.Logger
	now     func() time.Time
	router  *gin.Engine
	events  *stream.Hub
}

// New creates a server over j.
func New(j *journal.Journal, cfg Config, logger zerolog.Logger) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	s := &Server{
		journal: j,
		cfg:     cfg,
		logger:  logger.With().Str("component", "server").Logger(),
		now:     time.Now,
		events:  stream.NewHub(),
	}
	s.events.Start(context.Background())

	router := gin.New()
	router.Use(RecoveryMiddleware(s.logger))
	router.Use(RequestLoggerMiddleware(s.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   s.now().Unix(),
			"trades": len(s.journal.All()),
			"events": s.events.Metrics(),
		})
	})

	api := router.Group("/api")
	s.registerTradeRoutes(api)
	s.registerStatsRoutes(api)
	s.registerBackupRoutes(api)
	s.registerChatRoutes(api)
	s.registerEventRoutes(api)

	s.router = router
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Events returns the hub that receives a change event for every successful
// mutation made through the API.
func (s *Server) Events() *stream.Hub {
	return s.events
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	defer s.events.Stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
