package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askora/askora/internal/api"
	"github.com/askora/askora/internal/api/uistatic"
	"github.com/askora/askora/internal/auth"
	"github.com/askora/askora/internal/config"
	"github.com/askora/askora/internal/connection"
	"github.com/askora/askora/internal/nl2sql"
	"github.com/askora/askora/internal/observability"
	"github.com/askora/askora/internal/pipeline"
	"github.com/askora/askora/internal/query"
)

func main() {
	cfg, err := config.LoadFromEnv("askora-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	// A broken provider leaves the form usable for connections and raw SQL;
	// readiness reports the gap.
	translator, err := nl2sql.New(context.Background(), cfg.AI)
	if err != nil {
		logger.Error("failed to initialize query translator", slog.Any("error", err))
	}
	if closer, ok := translator.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	connections := connection.NewManager(cfg.Database.ConnectTimeout, logger)
	runner := query.NewRunner(query.Options{
		RowLimit: cfg.Database.MaxRows,
		ReadOnly: cfg.Database.ReadOnly,
		Timeout:  cfg.Database.ExecuteTimeout,
	})

	deps := api.Dependencies{
		Logger:      logger,
		Connections: connections,
		Translator:  translator,
		Pipeline:    pipeline.New(translator, connections, runner, logger),
		UI:          uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckTranslator(cfg, translator),
			api.CheckAuth(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.Bool("translate_enabled", translator != nil),
			slog.String("default_dialect", cfg.Database.DefaultDialect),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
