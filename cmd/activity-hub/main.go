package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Mansoor88-6/activity-hub/internal/config"
	"Mansoor88-6/activity-hub/internal/database"
	"Mansoor88-6/activity-hub/internal/handler"
	"Mansoor88-6/activity-hub/internal/logger"
	"Mansoor88-6/activity-hub/internal/metrics"
	"Mansoor88-6/activity-hub/internal/queue"
	"Mansoor88-6/activity-hub/internal/repository"
	"Mansoor88-6/activity-hub/internal/router"
	"Mansoor88-6/activity-hub/internal/service"
	"Mansoor88-6/activity-hub/internal/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "activity-hub",
		Short:        "Collects device activity chunks, tracks presence and queues remote commands",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/local.yaml", "Path to configuration file")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(configPath)
			},
		},
		newPurgeCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and opens the logger and database shared by
// every subcommand.
func bootstrap(configPath string) (*config.Config, *logger.Logger, *database.DB, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.New(database.Options{
		Path:          cfg.Storage.Path,
		MaxOpenConns:  cfg.Storage.MaxOpenConns,
		BusyTimeoutMs: cfg.Storage.BusyTimeoutMs,
	}, log.Logger)
	if err != nil {
		log.Sync()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, log, db, nil
}

func serve(configPath string) error {
	cfg, log, db, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	log.Info("Starting activity hub",
		zap.String("env", cfg.Env),
		zap.String("config_path", configPath),
	)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Storage
	chunkRepo := repository.NewChunkRepository(db.DB, log.Logger)
	deviceRepo := repository.NewDeviceRepository(db.DB, log.Logger)
	commandQueue := queue.NewCommandQueue(db.DB, log.Logger)

	// Services
	v := validation.New()
	settingsService := service.NewSettingsService(
		repository.NewSettingsRepository(db.DB, log.Logger),
		cfg.TrackingDefaults(),
		v,
		log.Logger,
	)
	ingestService := service.NewIngestService(chunkRepo, deviceRepo, settingsService, v, m, log.Logger)
	aggregationService := service.NewAggregationService(chunkRepo, settingsService, cfg.Tracking.DayUTCOffsetMinutes, log.Logger)
	commandService := service.NewCommandService(commandQueue, deviceRepo, v, m, log.Logger)
	deviceService := service.NewDeviceService(deviceRepo, commandQueue, aggregationService, settingsService, v, m, log.Logger)
	errorService := service.NewDeviceErrorService(repository.NewDeviceErrorRepository(db.DB, log.Logger), v, log.Logger)

	// HTTP
	opts := router.Options{
		APIPrefix:      cfg.HTTP.APIPrefix,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
		opts.Gatherer = reg
	}
	h := router.New(router.Handlers{
		Logs:     handler.NewLogHandler(ingestService, aggregationService, log.Logger),
		Devices:  handler.NewDeviceHandler(deviceService, log.Logger),
		Commands: handler.NewCommandHandler(commandService, log.Logger),
		Errors:   handler.NewDeviceErrorHandler(errorService, log.Logger),
		Settings: handler.NewSettingsHandler(settingsService, log.Logger),
	}, opts, log.Logger)

	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      h,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err, ok := <-serverErr:
		if ok {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
		return err
	}
	log.Info("Activity hub stopped")
	return nil
}

func newPurgeCmd(configPath *string) *cobra.Command {
	var (
		allChunks     bool
		commandsOlder time.Duration
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete stored chunks and old completed commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !allChunks && commandsOlder <= 0 {
				return fmt.Errorf("nothing to purge: pass --chunks and/or --commands-older-than")
			}

			cfg, log, db, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			defer db.Close()

			ctx := cmd.Context()
			v := validation.New()
			m := metrics.New(prometheus.NewRegistry())

			if allChunks {
				settingsService := service.NewSettingsService(repository.NewSettingsRepository(db.DB, log.Logger), cfg.TrackingDefaults(), v, log.Logger)
				deviceRepo := repository.NewDeviceRepository(db.DB, log.Logger)
				ingestService := service.NewIngestService(repository.NewChunkRepository(db.DB, log.Logger), deviceRepo, settingsService, v, m, log.Logger)
				n, err := ingestService.PurgeAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d chunks\n", n)
			}

			if commandsOlder > 0 {
				commandService := service.NewCommandService(queue.NewCommandQueue(db.DB, log.Logger), repository.NewDeviceRepository(db.DB, log.Logger), v, m, log.Logger)
				n, err := commandService.PurgeCompleted(ctx, commandsOlder)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d completed commands\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allChunks, "chunks", false, "Delete every stored activity chunk")
	cmd.Flags().DurationVar(&commandsOlder, "commands-older-than", 0, "Delete completed commands older than this duration")
	return cmd
}
