package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mongoly"
	"github.com/kailas-cloud/mongoly/internal/config"
	logpkg "github.com/kailas-cloud/mongoly/internal/logger"
	"github.com/kailas-cloud/mongoly/internal/metrics"
	chiTransport "github.com/kailas-cloud/mongoly/internal/transport/chi"
	healthuc "github.com/kailas-cloud/mongoly/internal/usecase/health"
	provisionuc "github.com/kailas-cloud/mongoly/internal/usecase/provision"
	"github.com/kailas-cloud/mongoly/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var env string
	root := &cobra.Command{
		Use:          "mongoly",
		Short:        "Provision MongoDB validators and indexes from configuration",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "config environment (local, dev, docker, prod)")

	root.AddCommand(
		&cobra.Command{
			Use:   "apply [collection...]",
			Short: "Apply configured schemas and indexes, then exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runApply(cmd.Context(), env, args)
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run the admin HTTP server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), env)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "mongoly %s (commit %s, built %s)\n",
					version.Version, version.Commit, version.Date)
			},
		},
	)
	return root
}

// app is the composition root shared by apply and serve.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	client    *mongoly.Client
	provision *provisionuc.Service
}

func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting mongoly",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("database", cfg.Mongo.Database),
		zap.Int("collections", len(cfg.Collections)),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := mongoly.New(ctx,
		mongoly.WithURI(cfg.Mongo.URI),
		mongoly.WithDatabase(cfg.Mongo.Database),
		mongoly.WithAppName(cfg.Mongo.AppName),
		mongoly.WithConnectTimeout(cfg.Mongo.ConnectTimeout()),
		mongoly.WithReadinessTimeout(cfg.Mongo.Readiness()),
		mongoly.WithLogger(logger),
		mongoly.WithPrometheus(reg),
	)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("connect: %w", err)
	}
	logger.Info("Connected to database")

	m := metrics.New(reg)
	svc := provisionuc.New(provisionuc.NewDatabaseProvisioner(client.DB()), cfg.Collections, m, logger)

	return &app{cfg: cfg, logger: logger, registry: reg, metrics: m, client: client, provision: svc}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.client.Close(ctx); err != nil {
		a.logger.Warn("Error closing database client", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func runApply(ctx context.Context, env string, names []string) error {
	a, err := newApp(ctx, env)
	if err != nil {
		return err
	}
	defer a.close()

	ctx = logpkg.ContextWithLogger(ctx, a.logger)

	var results []provisionuc.Result
	if len(names) == 0 {
		results, err = a.provision.ApplyAll(ctx)
	} else {
		for _, name := range names {
			var r provisionuc.Result
			if r, err = a.provision.Apply(ctx, name); err != nil {
				break
			}
			results = append(results, r)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(results); encErr != nil {
		return errors.Join(err, fmt.Errorf("write results: %w", encErr))
	}
	return err
}

func runServe(ctx context.Context, env string) error {
	a, err := newApp(ctx, env)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.provision.ApplyAll(logpkg.ContextWithLogger(ctx, a.logger)); err != nil {
		a.logger.Error("Initial provisioning failed", zap.Error(err))
	}

	healthSvc := healthuc.New(a.client, a.client.DB(), a.provision.Names())
	server := chiTransport.NewServer(healthSvc, a.provision, a.registry, a.logger)

	handler := server.Handler(
		chiTransport.JSONRecoverer(a.logger),
		chiMiddleware.RequestID,
		chiTransport.WideEvent(a.logger),
		chiTransport.BearerAuthMiddleware(a.cfg.HTTP.APIKeys),
		a.metrics.Middleware(),
	)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-quit:
		a.logger.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}
