package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"plateserver/internal/config"
	"plateserver/internal/database"
	"plateserver/internal/handler"
	"plateserver/internal/logger"
	"plateserver/internal/metrics"
	"plateserver/internal/repository/sqldb"
	"plateserver/internal/routes"
	"plateserver/internal/service/hub"
)

type App struct {
	config  *config.Config
	logger  *logger.Logger
	db      *database.DB
	metrics *metrics.Metrics
	hub     *hub.Hub
	router  http.Handler
}

// NewApp connects to the store, creates missing tables and wires the
// handlers. It fails when the store cannot be reached; the caller must not
// serve traffic in that case.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	live := hub.New(log, m.LiveViewers)

	h := handler.New(handler.Deps{
		Detections:  sqldb.NewDetectionRepository(db),
		Authorized:  sqldb.NewAuthorizedPlateRepository(db),
		Store:       db,
		Live:        live,
		Metrics:     m,
		Logger:      log,
		PlatesLimit: cfg.PlatesLimit,
	})

	return &App{
		config:  cfg,
		logger:  log,
		db:      db,
		metrics: m,
		hub:     live,
		router:  routes.SetupRoutes(h, m, log),
	}, nil
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP until ctx is cancelled, then shuts the server down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := a.newServer(ctx)

	eg.Go(func() error {
		return a.hub.Run(egctx)
	})

	eg.Go(func() error {
		a.logger.Info("🚀 Plate service listening on http://localhost:%d (%s store)", a.config.Port, a.db.Dialect())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()

		a.logger.Info("Shutting down HTTP server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// newServer builds the HTTP server. Request contexts derive from ctx without
// its cancellation so in-flight requests can finish during Shutdown.
func (a *App) newServer(ctx context.Context) *http.Server {
	base := context.WithoutCancel(ctx)
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: a.router,
		BaseContext: func(_ net.Listener) context.Context {
			return base
		},
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Close releases the shared store handle.
func (a *App) Close() error {
	return a.db.Close()
}
