package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/enfinlibre/formation/internal/api"
	"github.com/enfinlibre/formation/internal/config"
	"github.com/enfinlibre/formation/internal/events"
	"github.com/enfinlibre/formation/internal/feedback"
	"github.com/enfinlibre/formation/internal/llm"
	"github.com/enfinlibre/formation/internal/logging"
	"github.com/enfinlibre/formation/internal/submission"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quiz submission and analysis API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, loader, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		return serve(cmd, cfg, loader)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

func serve(cmd *cobra.Command, cfg *config.Config, loader *config.Loader) error {
	logger, level, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	loader.Watch(logger, func(next *config.Config) {
		if err := logging.SetLevel(level, next.Logging.Level); err != nil {
			logger.Warn("ignoring invalid log level", zap.String("level", next.Logging.Level), zap.Error(err))
			return
		}
		logger.Info("log level updated", zap.String("level", next.Logging.Level))
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := cfg.LLM.Validate(); err != nil {
		return fmt.Errorf("LLM provider not configured: %w", err)
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, backend.EventRepo(), logger)
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}

	publisher, err := events.NewEventPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
	if err != nil {
		// Events are optional; the API works without them.
		logger.Warn("failed to connect to RabbitMQ, events disabled", zap.Error(err))
		publisher, _ = events.NewEventPublisher("", "", logger)
	}
	defer publisher.Close()

	analyzer := feedback.NewService(backend.SubmissionRepo(), provider, cfg.Analysis, publisher, logger)
	submitter := submission.NewService(backend.SubmissionRepo(), analyzer, publisher, logger)

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.Deps{
		Submitter:   submitter,
		Analyzer:    analyzer,
		Submissions: backend.SubmissionRepo(),
		Logger:      logger,
	}, api.Options{
		Version:        version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("provider", provider.Name()),
			zap.String("model", provider.ModelID()),
			zap.String("database", cfg.Database.Driver),
			zap.Bool("events", publisher.Enabled()),
			zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down HTTP server", zap.Error(err))
		return err
	}
	return nil
}
