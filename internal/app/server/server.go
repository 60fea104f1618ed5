package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"appraisal/internal/domain/appraisal"
	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/platform/config"
	"appraisal/internal/platform/email"
	"appraisal/internal/platform/jobs"
	appraisalhandler "appraisal/internal/transport/http/handlers/appraisal"
	audithandler "appraisal/internal/transport/http/handlers/audit"
	"appraisal/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Router  http.Handler
	Service *appraisal.Service
	Jobs    *jobs.Service

	stores *Stores
	cancel context.CancelFunc
}

// New wires stores, the directory, background jobs and the HTTP router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stores, err := OpenStores(ctx, cfg, cfg.RunMigrations)
	if err != nil {
		return nil, err
	}
	dir, err := OpenDirectory(cfg)
	if err != nil {
		stores.Close()
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	jobsSvc := jobs.New(256)
	jobsSvc.Start(jobCtx)

	service := appraisal.NewService(stores.Appraisals, directory.NewResolver(dir))
	notifySvc := notifications.New(dir, email.New(cfg))
	notifySvc.DefaultFrom = cfg.EmailFrom
	auditSvc := audit.New(stores.Audit)

	app := &App{
		Config:  cfg,
		Service: service,
		Jobs:    jobsSvc,
		stores:  stores,
		cancel:  cancel,
	}
	perms := auth.StaticPermissions{}
	app.Router = app.routes(
		appraisalhandler.NewHandler(service, perms, notifySvc, auditSvc, jobsSvc),
		audithandler.NewHandler(auditSvc, perms),
	)
	return app, nil
}

func (a *App) routes(appraisals *appraisalhandler.Handler, auditTrail *audithandler.Handler) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, cfg.HROverrideRoles))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Service.Ping(ctx); err != nil {
			slog.Warn("readiness check failed", "err", err)
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.WorkflowMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
		appraisals.RegisterRoutes(r)
		auditTrail.RegisterRoutes(r)
	})
	return router
}

// Close stops the job worker after pending jobs finish and releases the store.
func (a *App) Close() {
	a.Jobs.Drain()
	a.cancel()
	a.Jobs.Wait()
	a.stores.Close()
}

// Run loads configuration from the environment and serves until SIGINT or SIGTERM.
func Run() error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("appraisal server listening", "addr", cfg.Addr, "store", cfg.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
