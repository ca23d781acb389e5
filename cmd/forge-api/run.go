package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/roomstudio/asset-forge/internal/api_server"
	"github.com/roomstudio/asset-forge/internal/artifacts"
	"github.com/roomstudio/asset-forge/internal/client"
	"github.com/roomstudio/asset-forge/internal/config"
	"github.com/roomstudio/asset-forge/internal/events"
	handlers "github.com/roomstudio/asset-forge/internal/handlers/v1alpha1"
	"github.com/roomstudio/asset-forge/internal/reconciler"
	"github.com/roomstudio/asset-forge/internal/service"
	"github.com/roomstudio/asset-forge/internal/store"
	"github.com/roomstudio/asset-forge/pkg/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the asset forge api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
		if err != nil {
			logLvl = zap.NewAtomicLevelAt(zap.InfoLevel)
		}

		logger := log.InitLog(logLvl)
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalf("initializing data store: %v", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Fatalf("running initial migration: %v", err)
		}

		artifactStore, err := artifacts.NewMinioStore(
			artifacts.WithEndpoint(cfg.Artifacts.Endpoint),
			artifacts.WithBucket(cfg.Artifacts.Bucket),
			artifacts.WithAccessKey(cfg.Artifacts.AccessKey),
			artifacts.WithSecretKey(cfg.Artifacts.SecretKey),
			artifacts.WithSSL(cfg.Artifacts.UseSSL),
			artifacts.WithPublicBaseUrl(cfg.Artifacts.PublicBaseUrl),
		)
		if err != nil {
			zap.S().Fatalf("initializing artifact store: %v", err)
		}

		generationClient := client.NewGenerationClient(cfg.Service.GenerationServiceUrl, cfg.Service.GenerationTimeout)

		eventProducer := events.NewEventProducer(&events.StdoutWriter{})
		defer func() { _ = eventProducer.Close() }()

		rec := reconciler.New(s, generationClient, artifactStore,
			reconciler.WithRetryLimit(cfg.Service.MaterializeRetryLimit),
			reconciler.WithSweepConcurrency(cfg.Service.SweepConcurrency),
			reconciler.WithEventProducer(eventProducer),
		)

		jobSrv := service.NewJobService(s, generationClient, rec, cfg.Service.CallbackBaseUrl)
		itemSrv := service.NewItemService(s)
		handler := handlers.NewServiceHandler(jobSrv, itemSrv, rec)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		go reconciler.NewSweeper(rec, cfg.Service.PollInterval).Run(ctx)

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalf("creating listener: %s", err)
			}

			server := apiserver.New(handler, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalf("Error running server: %s", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalf("creating listener: %s", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalf("Error running metrics server: %s", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
