package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/consortial/counterharvest/internal/config"
	"github.com/consortial/counterharvest/internal/counter"
	"github.com/consortial/counterharvest/internal/logger"
	"github.com/consortial/counterharvest/internal/repository"
)

// replay pushes a locally saved report file through the same validation
// and processing pipeline the queue worker uses, without touching the
// network. Useful for debugging a provider's payload offline.
func main() {
	logCfg := logger.LoadFromEnv()
	logCfg.Format = "text"
	logCfg.ServiceName = "counterharvest-replay"
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	infile := flag.String("file", "", "Report file to replay (required)")
	tenant := flag.String("tenant", "", "Consortium key owning the target store (required)")
	reportName := flag.String("report", "", "Report name (TR, DR, PR, IR) (required)")
	providerID := flag.Uint("provider", 0, "Provider ID the usage belongs to (required)")
	institutionID := flag.Uint("institution", 0, "Institution ID the usage belongs to (required)")
	month := flag.String("month", "", "YYYY-MM to process (default: last month)")
	replace := flag.Bool("replace", false, "Replace existing data for the period")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *infile == "" || *tenant == "" || *reportName == "" || *providerID == 0 || *institutionID == 0 {
		flag.Usage()
		os.Exit(2)
	}

	yearMonth := *month
	if yearMonth == "" {
		yearMonth = time.Now().AddDate(0, -1, 0).Format("2006-01")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	tenants := repository.NewTenantManager(cfg.Database)
	store, err := tenants.Store(*tenant)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open tenant store")
	}

	raw, err := os.ReadFile(*infile)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read input file")
	}

	validator := counter.NewValidator("5")
	rpt, err := validator.Validate(raw, *reportName)
	if err != nil {
		appLogger.WithError(err).Fatal("Report failed COUNTER validation")
	}

	status, err := counter.NewProcessor().Process(context.Background(), store, counter.ProcessInput{
		ReportName:    *reportName,
		Report:        rpt,
		ProviderID:    *providerID,
		InstitutionID: *institutionID,
		YearMonth:     yearMonth,
		ReplaceData:   *replace,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to process report")
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldReport:    *reportName,
		logger.FieldYearMonth: yearMonth,
		"items":               len(rpt.Items),
		logger.FieldStatus:    string(status),
	}).Info("Replay completed")
}
