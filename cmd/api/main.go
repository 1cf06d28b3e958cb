package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/suqhub/suq-backend/internal/config"
	"github.com/suqhub/suq-backend/internal/middleware"
	"github.com/suqhub/suq-backend/internal/migrate"
	"github.com/suqhub/suq-backend/internal/modules/auth"
	"github.com/suqhub/suq-backend/internal/modules/business"
	"github.com/suqhub/suq-backend/internal/modules/catalog"
	"github.com/suqhub/suq-backend/internal/modules/credit"
	"github.com/suqhub/suq-backend/internal/modules/inventory"
	"github.com/suqhub/suq-backend/internal/modules/pos"
	"github.com/suqhub/suq-backend/internal/modules/realtime"
	syncmod "github.com/suqhub/suq-backend/internal/modules/sync"
)

func main() {
	// Absence of .env is fine in containerized deployments.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("ping database", zap.Error(err))
	}
	if err := migrate.Up(ctx, db); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}
	logger.Info("database ready")

	// Realtime pipeline: mutations write sync_events in their own
	// transaction, the dispatcher drains them to the hub.
	hub := realtime.NewHub(logger)
	dispatcher := realtime.NewDispatcher(db, hub, logger, cfg.OutboxInterval)
	emitter := realtime.NewEmitter()

	userRepo := auth.NewPostgresRepository(db)
	businessRepo := business.NewPostgresRepository(db)
	productRepo := catalog.NewPostgresRepository(db)
	movementRepo := inventory.NewPostgresRepository(db)
	saleRepo := pos.NewPostgresRepository(db)
	creditRepo := credit.NewPostgresRepository(db)
	ledgerRepo := syncmod.NewLedgerRepository(db)
	watermarkRepo := syncmod.NewWatermarkRepository(db)
	syncErrRepo := syncmod.NewErrorRepository(db)

	authService := auth.NewService(userRepo, []byte(cfg.JWTKey), cfg.AccessTTL,
		cfg.TelegramBotToken, cfg.InitDataMaxAge)
	businessService := business.NewService(businessRepo)
	catalogService := catalog.NewService(db, productRepo, emitter, dispatcher.Notify)
	posService := pos.NewService(db, saleRepo, productRepo, movementRepo, creditRepo,
		emitter, dispatcher.Notify, logger)
	syncService := syncmod.NewService(db, ledgerRepo, watermarkRepo, syncErrRepo,
		posService, saleRepo, productRepo, movementRepo, emitter, dispatcher.Notify,
		cfg.PullWindow, cfg.MaxBatchActions, logger)

	authMW := auth.NewMiddleware(authService)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimw.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	auth.NewHandler(authService).RegisterRoutes(router)

	// Registration needs a login but not yet a business claim.
	router.Group(func(r chi.Router) {
		r.Use(authMW.RequireAuth)
		business.NewHandler(businessService, authService).RegisterRoutes(r)
	})

	router.Group(func(r chi.Router) {
		r.Use(authMW.RequireAuth)
		r.Use(authMW.RequireBusiness)
		catalog.NewHandler(catalogService).RegisterRoutes(r)
		pos.NewHandler(posService).RegisterRoutes(r)
		credit.NewHandler(creditRepo).RegisterRoutes(r)
		syncmod.NewHandler(syncService, syncErrRepo).RegisterRoutes(r)
		realtime.NewHandler(hub, logger).RegisterRoutes(r)
	})

	go dispatcher.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	hub.Shutdown()
	logger.Info("bye")
}
