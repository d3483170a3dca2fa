package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360studio/provgraph/api"
	"github.com/c360studio/provgraph/config"
	"github.com/c360studio/provgraph/export"
	"github.com/c360studio/provgraph/graph"
	"github.com/c360studio/provgraph/metrics"
	"github.com/c360studio/provgraph/provenance"
	"github.com/c360studio/provgraph/service"
	"github.com/c360studio/provgraph/source"
	"github.com/c360studio/provgraph/storage"
	"github.com/c360studio/provgraph/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

type serveOptions struct {
	file    string
	addr    string
	profile string
	origins []string
}

func serveCmd(flags *globalFlags) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the provenance graph fresh and serve it over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}
			if opts.file != "" && len(cfg.Watch.Patterns) == 0 {
				cfg.Watch.Patterns = []string{opts.file}
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger := newLogger(os.Stderr, flags.logLevel, cfg.Log.Level)
			return runServe(cmd.Context(), cfg, opts, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Serve a local Turtle file instead of the rawbase endpoint")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&opts.profile, "profile", string(export.ProfileMinimal), "Default ontology profile for RDF exports")
	cmd.Flags().StringSliceVar(&opts.origins, "cors-origin", nil, "Allowed CORS origins")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, opts *serveOptions, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	profile, err := export.ParseProfile(opts.profile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var src source.Source
	if opts.file != "" {
		src = source.File{Path: opts.file}
	} else {
		src = source.NewFetcher(cfg.Source, logger)
	}

	session := provenance.NewSession(
		provenance.WithLogger(logger),
		provenance.WithObserver(collector),
	)
	svcOpts := []service.Option{
		service.WithGraph(cfg.Source.Graph),
		service.WithFailureRecorder(collector),
		service.WithLogger(logger),
	}

	var triggers []<-chan watch.Event
	routerOpts := []api.RouterOption{
		api.WithGatherer(reg),
		api.WithAllowedOrigins(opts.origins...),
		api.WithExporter(export.NewExporter(profile)),
	}

	if cfg.NATS.URL != "" {
		client, err := connectToNATS(ctx, cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(context.Background()); err != nil {
				logger.Debug("Failed to close NATS client", "error", err)
			}
		}()

		trigger := watch.NewNATSTrigger(client.GetConnection(), cfg.NATS.NotifySubject, cfg.Source.Graph, logger)
		if err := trigger.Start(); err != nil {
			return err
		}
		defer trigger.Stop()
		triggers = append(triggers, trigger.Events())

		if cfg.NATS.Publish {
			svcOpts = append(svcOpts, service.WithPublisher(graph.NewPublisher(client, logger)))
		}

		if cfg.NATS.SnapshotBucket != "" {
			js, err := client.JetStream()
			if err != nil {
				return fmt.Errorf("get JetStream context: %w", err)
			}
			store, err := storage.NewSnapshotStore(ctx, js, cfg.NATS.SnapshotBucket)
			if err != nil {
				return err
			}
			svcOpts = append(svcOpts, service.WithStore(store))
			routerOpts = append(routerOpts, api.WithArchive(store))
		}
	}

	if len(cfg.Watch.Patterns) > 0 {
		fw, err := watch.NewFileWatcher(cfg.Watch, logger)
		if err != nil {
			return err
		}
		if err := fw.Start(ctx); err != nil {
			return err
		}
		defer fw.Stop()
		triggers = append(triggers, fw.Events())
	}

	svc := service.New(src, session, svcOpts...)

	// A failed first refresh leaves the server up; the next trigger retries.
	if _, err := svc.Refresh(ctx); err != nil {
		logger.Warn("Initial provenance refresh failed", "error", err)
	}

	router := api.NewRouter(svc, logger, routerOpts...)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Provgraph ready", "version", Version, "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		svc.Run(ctx, triggers...)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", "error", err)
	}
	cancel()
	// Run waits for its own refreshes; the API's are waited for here once
	// nothing can start a new one.
	<-runDone
	svc.Wait()

	logger.Info("Provgraph shutdown complete")
	return nil
}
