package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	api "github.com/mind-engage/examportal/internal/api/http"
	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/config"
	"github.com/mind-engage/examportal/internal/db"
	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/grading"
	"github.com/mind-engage/examportal/internal/logger"
	"github.com/mind-engage/examportal/internal/metrics"
	"github.com/mind-engage/examportal/internal/notify"
	"github.com/mind-engage/examportal/internal/report"
	"github.com/mind-engage/examportal/internal/submission"
	syncx "github.com/mind-engage/examportal/internal/sync"
	"github.com/mind-engage/examportal/internal/tracing"
)

func main() {
	cfg, err := config.Load("configs")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = lg.Sync() }()

	if cfg.TracingEnabled {
		shutdown, err := tracing.Init("examportal", cfg.TracingCollectorEndpoint)
		if err != nil {
			lg.Fatal("tracing init failed", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	// --- Storage ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver := db.Normalize(cfg.DBDriver)
	var (
		store  exam.Store
		events *syncx.EventRepo
		ready  = func(context.Context) error { return nil }
	)
	if driver == db.DriverMemory {
		// offline demo: nothing survives a restart
		store = exam.NewInMemoryStore(nil)
		lg.Warn("using in-memory store; results are lost on restart")
	} else {
		dbh, err := db.Open(ctx, driver, cfg.DBDSN)
		if err != nil {
			lg.Fatal("db open failed", zap.Error(err), zap.String("driver", string(driver)))
		}
		defer dbh.Close()
		events = syncx.NewEventRepo(dbh, cfg.SiteID)
		store = exam.NewSQLStore(dbh, exam.WithEvents(events))
		ready = dbh.PingContext
	}

	// --- Domain ---
	var gradingOpts []grading.Option
	if !cfg.NegativeMarking {
		gradingOpts = append(gradingOpts, grading.WithoutNegativeMarking())
	}
	engine := grading.New(gradingOpts...)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	submissions := submission.New(store, store, engine,
		submission.WithLogger(lg.Named("submission")),
		submission.WithMetrics(m),
		submission.WithNotifier(notify.LogNotifier{Log: lg.Named("notify")}),
	)
	reports := report.NewPresenter(store, store, engine, lg.Named("report"))

	// --- Auth (local JWT; dev students only offline) ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret,
		auth.WithAdmin(cfg.AdminUser, cfg.AdminPassHash),
		auth.WithDevStudents(cfg.Mode == config.ModeOffline),
		auth.WithLogger(lg.Named("auth")),
	)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logger.AccessLog(lg.Named("http")), middleware.Recoverer)
	r.Use(tracing.Middleware, m.Middleware)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		Store:       store,
		Submissions: submissions,
		Reports:     reports,
		Auth:        authSvc,
		Events:      events,
		LocalLogin:  cfg.EnableLocalAuth,
		Log:         lg.Named("api"),
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		lg.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("db", string(driver)),
			zap.Bool("negative_marking", cfg.NegativeMarking))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("graceful shutdown", zap.Error(err))
	}
}
