package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/reservation"
	reservationrouter "github.com/rentabot/rentabot/engine/reservation/router"
	"github.com/rentabot/rentabot/engine/resource"
	resourcerouter "github.com/rentabot/rentabot/engine/resource/router"
	"github.com/rentabot/rentabot/pkg/config"
	"github.com/rentabot/rentabot/pkg/logger"
)

// Server owns the HTTP surface: a thin translation layer over the
// resource and reservation engines.
type Server struct {
	cfg          *config.Config
	log          logger.Logger
	resources    *resource.Store
	reservations *reservation.Store
	metrics      *monitoring.Metrics
	router       *gin.Engine
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	resources *resource.Store,
	reservations *reservation.Store,
	metrics *monitoring.Metrics,
) *Server {
	s := &Server{
		cfg:          cfg,
		log:          log,
		resources:    resources,
		reservations: reservations,
		metrics:      metrics,
	}
	s.buildRouter()
	return s
}

func (s *Server) buildRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(s.log))
	r.Use(LegacyAPIMiddleware(s.cfg.LegacyRedirect))
	if s.cfg.Server.CORSEnabled {
		r.Use(CORSMiddleware())
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readiness", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	resources := resourcerouter.NewHandler(s.resources, s.metrics)
	reservations := reservationrouter.NewHandler(s.resources, s.reservations, s.metrics)
	for _, prefix := range []string{APIPrefix, LegacyAPIPrefix} {
		group := r.Group(prefix)
		resources.Register(group)
		reservations.Register(group)
	}
	s.router = r
}

// Router exposes the gin engine, used by handler tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("HTTP server listening", "addr", srv.Addr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
