// Package server exposes the contacts store over HTTP. The router and
// its dependencies are constructed explicitly at startup and passed in;
// there is no package-level application state.
package server

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"

	"github.com/zoobzio/areabook"
	"github.com/zoobzio/areabook/contacts"
)

// Server serves per-area contact lists. Construct with New; safe for
// concurrent requests since the underlying pipeline is immutable and the
// store is stateless.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	engine   *gin.Engine
	pipeline *areabook.Pipeline[string, []contacts.Contact]
}

// New builds a Server around the given store. A nil logger disables
// logging.
func New(cfg Config, store *contacts.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		pipeline: store.Pipeline(),
	}

	if cfg.StageLog {
		s.enableStageLog()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.accessLog())

	engine.GET("/api/people/:area", s.handleGetPeople)
	engine.GET("/healthz", s.handleHealthz)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then drains in-flight requests within the
// configured grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout),
		WriteTimeout: time.Duration(s.cfg.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "grace", time.Duration(s.cfg.ShutdownGrace).String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownGrace))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the pipeline's observability resources.
func (s *Server) Close() error {
	return s.pipeline.Close()
}

func (s *Server) handleGetPeople(c *gin.Context) {
	area := c.Param("area")

	people, err := s.pipeline.Process(c.Request.Context(), area)
	if err != nil {
		status, msg := statusFor(err)
		s.logger.Error("lookup failed",
			"area", area,
			"kind", string(contacts.KindOf(err)),
			"err", err.Error(),
		)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, people)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps a lookup failure onto an HTTP status and a message safe
// to show callers. Data-file problems are the operator's fault, not the
// caller's, so parse/validation/io all surface as 500 without detail.
func statusFor(err error) (int, string) {
	switch contacts.KindOf(err) {
	case contacts.KindBadArea:
		return http.StatusBadRequest, "invalid area name"
	case contacts.KindNotFound:
		return http.StatusNotFound, "unknown area"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// accessLog logs one line per request.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// enableStageLog prints a colored one-line summary per pipeline run.
func (s *Server) enableStageLog() {
	_ = s.pipeline.OnComplete(func(_ context.Context, ev areabook.PipelineEvent) error {
		// Column 1: Success or failure
		lbl := color.New(color.FgWhite).Add(color.BgGreen).Sprintf(" OK  ")
		if !ev.Success {
			lbl = color.New(color.FgWhite).Add(color.BgRed).Sprintf(" ERR ")
		}

		// Column 2: Time elapsed
		tclr := color.New(color.FgWhite, color.Faint)
		if ev.Duration > time.Millisecond {
			tclr = color.New(color.FgWhite).Add(color.BgCyan)
		}
		elapsed := tclr.Sprintf("%13v", ev.Duration)

		log.Print("|" + lbl + "| " + elapsed + " | " + string(ev.Name))
		return nil
	})
}
