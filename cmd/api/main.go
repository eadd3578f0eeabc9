package main

import (
	"fmt"
	"os"

	"github.com/consortial/counterharvest/internal/api"
	"github.com/consortial/counterharvest/internal/config"
	"github.com/consortial/counterharvest/internal/logger"
	"github.com/consortial/counterharvest/internal/repository"
)

func main() {
	logCfg := logger.LoadFromEnv()
	logCfg.ServiceName = "counterharvest-api"
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// The global store is opened for its side effect here: migrations
	// run once before any per-tenant store is touched by a request.
	if _, err := repository.OpenGlobal(&cfg.Database); err != nil {
		appLogger.WithError(err).Fatal("Failed to open global store")
	}
	tenants := repository.NewTenantManager(cfg.Database)

	router := api.SetupRouter(tenants, &cfg.Server, appLogger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	appLogger.WithField("addr", addr).Info("Starting status API")
	if err := router.Run(addr); err != nil {
		appLogger.WithError(err).Fatal("Server exited")
	}
}
