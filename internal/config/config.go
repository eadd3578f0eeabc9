package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Harvest  HarvestConfig  `mapstructure:"harvest"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig describes both the global store and the per-tenant
// stores. TenantDSN is a template with a single %s, replaced with the
// consortium key, so every tenant resolves to its own logical database.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	GlobalDSN       string        `mapstructure:"global_dsn"`
	TenantDSN       string        `mapstructure:"tenant_dsn"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GlobalDSNFor returns the DSN of the global store.
func (c *DatabaseConfig) GlobalDSNFor() string {
	return c.GlobalDSN
}

// TenantDSNFor returns the DSN for one consortium's store.
func (c *DatabaseConfig) TenantDSNFor(key string) string {
	return fmt.Sprintf(c.TenantDSN, key)
}

// HarvestConfig tunes the queue worker.
type HarvestConfig struct {
	// MaxRetries is the attempt count at which an ingest becomes a
	// terminal Fail and raises an Alert.
	MaxRetries int `mapstructure:"max_retries"`

	// PendingWait is how long a Pending ingest is left alone before the
	// provider is polled again.
	PendingWait time.Duration `mapstructure:"pending_wait"`

	// ActiveTimeout reclaims Active ingests older than this by flipping
	// them back to Retrying; a worker killed mid-flight otherwise holds
	// its endpoint forever. Zero disables reclaim and preserves the
	// historical behavior.
	ActiveTimeout time.Duration `mapstructure:"active_timeout"`

	// RequestTimeout bounds one SUSHI fetch.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ReportsConfig controls archival of raw provider responses.
type ReportsConfig struct {
	// Path is the archive root; empty disables archival.
	Path string `mapstructure:"path"`
}

// StorageConfig selects the archive backend. Type "local" writes under
// reports.path on the filesystem; "s3", "r2" and "s3compatible" write to
// object storage with reports.path as the key prefix.
type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for credentials
	v.BindEnv("database.global_dsn", "GLOBAL_DATABASE_DSN")
	v.BindEnv("database.tenant_dsn", "TENANT_DATABASE_DSN")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.Count(cfg.Database.TenantDSN, "%s") != 1 {
		return nil, fmt.Errorf("database.tenant_dsn must contain exactly one %%s placeholder")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.global_dsn", "./data/global.db")
	v.SetDefault("database.tenant_dsn", "./data/tenant_%s.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("harvest.max_retries", 10)
	v.SetDefault("harvest.pending_wait", 10*time.Minute)
	v.SetDefault("harvest.active_timeout", time.Duration(0))
	v.SetDefault("harvest.request_timeout", 120*time.Second)

	v.SetDefault("reports.path", "")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.region", "")
}
