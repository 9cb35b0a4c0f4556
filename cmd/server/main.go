package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toeicquiz/backend/internal/api"
	"github.com/toeicquiz/backend/internal/auth"
	"github.com/toeicquiz/backend/internal/clock"
	quizsession "github.com/toeicquiz/backend/internal/domain/quiz_session"
	"github.com/toeicquiz/backend/internal/infrastructure/config"
	"github.com/toeicquiz/backend/internal/seed"
	"github.com/toeicquiz/backend/internal/service"
	"github.com/toeicquiz/backend/internal/store"
)

// @title           TOEIC Quiz API
// @version         1.0
// @description     Timed TOEIC practice quizzes with history, best scores and answer review.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// ── Dependencies ────────────────────────────────────────────────
	db, err := openStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open document store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	users := auth.NewLocalProvider(db, logger)

	if cfg.SeedDemo || cfg.StoreDriver == config.DriverMemory {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := seed.Demo(ctx, db, users, cfg.DemoEmail, cfg.DemoPassword, logger)
		cancel()
		if err != nil {
			logger.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	quizSvc := service.NewQuizService(db, clock.Real{}, logger, service.Options{
		PersistWorkers: cfg.PersistWorkers,
		Session:        quizsession.DefaultConfig(),
	})
	defer quizSvc.Close()
	unsubscribe := quizSvc.Bind(users)
	defer unsubscribe()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	handler := api.NewHandler(quizSvc, users, tokens, logger)

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})

	api.RegisterRoutes(mux, handler)

	// ── Middleware chain: Logging → CORS → mux ──────────────────────
	logged := api.Logging(logger)(api.CORS(mux))

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           logged,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("starting server", "address", cfg.ServerAddress, "store", cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.DocumentStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemory(), nil
	case config.DriverSQLite:
		return store.NewSQLite(cfg.SQLitePath)
	case config.DriverMongo:
		return store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
