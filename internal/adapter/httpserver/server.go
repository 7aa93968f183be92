// Package httpserver exposes the show over HTTP: the JSON API used by the
// presentation layer, health probes, version, metrics and the realtime
// connection endpoint.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/pscheid92/liveshop/internal/platform/config"
)

type showService interface {
	Snapshot() domain.ShowSnapshot
	Overlay() domain.OverlayState
	Dismiss() bool
	JoinContest() (domain.ContestView, error)
	Chat() ([]domain.ChatMessage, int)
	SubmitChat(text string) (domain.ChatMessage, bool)
	Reactions() []domain.ReactionToken
	React() (domain.ReactionToken, bool)
	StartCasting(device domain.DeviceRef) domain.CastingSession
	StopCasting() domain.CastingSession
	SetPlaying(playing bool) domain.CastingSession
	RetryLookup() error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	show showService

	realtimeHandler http.Handler
	metricsHandler  http.Handler
	httpMetrics     *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

// Deps groups the collaborators of NewServer. Realtime, Metrics and
// HTTPMetrics are optional.
type Deps struct {
	Show         showService
	Realtime     http.Handler
	Metrics      http.Handler
	HTTPMetrics  *metrics.HTTPMetrics
	HealthChecks []HealthCheck
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:            e,
		config:          cfg,
		show:            deps.Show,
		realtimeHandler: deps.Realtime,
		metricsHandler:  deps.Metrics,
		httpMetrics:     deps.HTTPMetrics,
		healthChecks:    deps.HealthChecks,
		startTime:       time.Now(),
	}

	srv.registerRoutes()
	return srv
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
