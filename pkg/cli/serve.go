package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/config"
	"github.com/Vvil1568/lct-hackathone/pkg/handlers"
	"github.com/Vvil1568/lct-hackathone/pkg/middleware"
	"github.com/Vvil1568/lct-hackathone/pkg/services/workqueue"
)

// shutdownGrace bounds how long running jobs and connections may drain.
const shutdownGrace = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP task API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Int("queue_workers", cfg.Queue.Workers),
		zap.Int("max_corrections", cfg.Analysis.MaxCorrections))

	oracle, err := newOracle(cfg, logger)
	if err != nil {
		return err
	}
	optimizer, err := newOptimizer(cfg, oracle, logger)
	if err != nil {
		return err
	}

	queue := workqueue.New(optimizer, logger,
		workqueue.WithStrategy(workqueue.NewThrottledStrategy(cfg.Queue.Workers)),
		workqueue.WithMaxRetained(cfg.Queue.MaxRetained))
	queue.SetOnUpdate(func(s workqueue.JobSnapshot) {
		logger.Debug("job update",
			zap.String("job_id", s.ID),
			zap.String("status", string(s.Status)))
	})

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, queue, logger).RegisterRoutes(mux)
	handlers.NewJobsHandler(queue, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           middleware.Chain(mux, middleware.Recoverer(logger), middleware.RequestLogger(logger)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting lakeadvisor",
			zap.String("addr", server.Addr),
			zap.Bool("tls", cfg.TLSEnabled()),
			zap.String("version", cfg.Version))
		var err error
		if cfg.TLSEnabled() {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			_ = queue.Shutdown(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Warn("jobs still running at exit", zap.Error(err))
	}
	return <-serveErr
}
