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

	"doc-investigator/internal/api"
	"doc-investigator/internal/app"
	"doc-investigator/internal/common/camunda"
	"doc-investigator/internal/common/config"
	"doc-investigator/internal/common/logger"
	"doc-investigator/internal/common/observability"
	processevaluation "doc-investigator/internal/workers/investigation/process-evaluation"
	startinvestigation "doc-investigator/internal/workers/investigation/start-investigation"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when camunda.enabled is set, the Zeebe workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, opts, newLogger(cfg, ""))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, opts *rootOptions, log logger.Logger) error {
	obs, err := observability.New(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	a, err := app.New(ctx, cfg, log, app.Options{Observability: obs, Model: opts.model})
	if err != nil {
		return err
	}
	defer a.Close()

	deps := a.Pingers()
	if cfg.Camunda.Enabled {
		zc, err := camunda.Connect(ctx, cfg.Camunda, camunda.DefaultConnectRetry, log)
		if err != nil {
			return err
		}
		defer func() { _ = zc.Close() }()
		deps["zeebe"] = zc

		workers := startWorkers(zc, a, obs, log)
		defer workers.Close()
	}

	server := api.NewServer(a.Service, a.Validator, api.Options{
		UploadDir:    cfg.Server.UploadDir,
		MaxUploadMB:  cfg.Server.MaxUploadMB,
		Dependencies: deps,
		BreakerState: a.BreakerState,
	}, log)
	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func startWorkers(zc *camunda.Client, a *app.App, obs *observability.Observability, log logger.Logger) *camunda.Workers {
	workers := camunda.NewWorkers(zc.Zeebe(), log)

	startCfg := config.GetWorkerConfig(a.Config, startinvestigation.TaskType)
	workers.Start(startinvestigation.TaskType, startCfg, startinvestigation.NewHandler(
		startinvestigation.LoadConfig(startCfg), a.Service, a.Validator, obs, log))

	evalCfg := config.GetWorkerConfig(a.Config, processevaluation.TaskType)
	workers.Start(processevaluation.TaskType, evalCfg, processevaluation.NewHandler(
		processevaluation.LoadConfig(evalCfg), a.Service, a.Validator, obs, log))

	return workers
}
