package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/consortial/counterharvest/internal/config"
	"github.com/consortial/counterharvest/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// globalModels are migrated into the shared store.
var globalModels = []interface{}{
	&domain.Consortium{},
	&domain.Report{},
	&domain.HarvestJob{},
}

// tenantModels are migrated into every consortium's store.
var tenantModels = []interface{}{
	&domain.Provider{},
	&domain.Institution{},
	&domain.SushiSetting{},
	&domain.IngestLog{},
	&domain.FailedIngest{},
	&domain.Alert{},
	&domain.CounterError{},
	&domain.UsageRecord{},
}

// OpenGlobal opens the shared store holding consortia, report definitions
// and the harvest job backlog.
func OpenGlobal(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := open(cfg, cfg.GlobalDSNFor())
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrate(globalModels...); err != nil {
			return nil, fmt.Errorf("failed to migrate global store: %w", err)
		}
	}
	return db, nil
}

// OpenTenant opens one consortium's store, derived from the tenant DSN
// template and the consortium key.
func OpenTenant(cfg *config.DatabaseConfig, key string) (*gorm.DB, error) {
	db, err := open(cfg, cfg.TenantDSNFor(key))
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.AutoMigrate(tenantModels...); err != nil {
			return nil, fmt.Errorf("failed to migrate tenant store %q: %w", key, err)
		}
	}
	return db, nil
}

func open(cfg *config.DatabaseConfig, dsn string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		// PreferSimpleProtocol keeps us compatible with transaction
		// poolers, which reject implicit prepared statements.
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), gormConfig)
	default:
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), gormConfig)
		if err == nil {
			db.Exec("PRAGMA journal_mode=WAL")
			db.Exec("PRAGMA foreign_keys=ON")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}
