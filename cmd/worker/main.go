package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/consortial/counterharvest/internal/config"
	"github.com/consortial/counterharvest/internal/counter"
	"github.com/consortial/counterharvest/internal/logger"
	"github.com/consortial/counterharvest/internal/repository"
	"github.com/consortial/counterharvest/internal/service"
	"github.com/consortial/counterharvest/internal/storage"
	"github.com/consortial/counterharvest/internal/sushi"
)

func main() {
	// Initialize logger first so config problems are loggable. Worker
	// output is meant to be read by an operator, so text is the default.
	logCfg := logger.LoadFromEnv()
	if logCfg.Format == "" {
		logCfg.Format = "text"
	}
	logCfg.ServiceName = "counterharvest-worker"
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Parse command line flags
	tenant := flag.String("tenant", "", "Consortium ID or key to process (required)")
	ident := flag.String("ident", "", "Optional runtime name for logging output")
	delay := flag.Int("startup-delay", 0, "Optional delay in seconds for staggering multiple startups")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *tenant == "" {
		appLogger.Fatal("-tenant is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldTenant:   *tenant,
		logger.FieldRunIdent: *ident,
		"startup_delay":      *delay,
	}).Info("Starting harvest queue worker")

	globalDB, err := repository.OpenGlobal(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open global store")
	}
	global := repository.NewGlobalStore(globalDB)
	tenants := repository.NewTenantManager(cfg.Database)

	archive, err := storage.NewArchive(cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize raw-response archive")
	}

	worker := service.NewWorker(service.WorkerDeps{
		Global:    global,
		Tenants:   tenants,
		Registry:  service.NewRegistry(tenants, appLogger),
		Client:    sushi.NewHTTPClient(cfg.Harvest.RequestTimeout),
		Validator: counter.NewValidator("5"),
		Processor: counter.NewProcessor(),
		Archive:   archive,
		Config:    cfg.Harvest,
		Logger:    appLogger,
	})

	// Handle graceful shutdown; a killed worker leaves its current
	// ingest Active until the stale-active reclaim window passes.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	if err := worker.Run(ctx, *tenant, *ident, time.Duration(*delay)*time.Second); err != nil {
		appLogger.WithError(err).Fatal("Worker run failed")
	}
	appLogger.Info("Harvest queue drained")
}
