// backend-go/internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Vendor   VendorConfig
	Refresh  RefreshConfig
	Stock    StockConfig
	Archive  ArchiveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	SnapshotTTLSeconds int
}

// VendorConfig describes the upstream pharmacy-management API the refresh
// fetchers pull stock and movement documents from.
type VendorConfig struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
	// Branches is a list of "BRANCH NAME|COMPANY" pairs.
	Branches []string
}

type RefreshConfig struct {
	LockName           string
	LockTimeoutSeconds int
	RetentionDays      int
	WorkerCount        int
	IntervalMinutes    int
	StatusPort         string
}

// StockConfig carries the business-policy constants for snapshot scoring.
// The thresholds are operational policy rather than structural invariants,
// so they stay configurable.
type StockConfig struct {
	// HQCompany is the company whose headquarters issues branch invoices.
	HQCompany string
	// HQBranch is the branch name of the headquarters warehouse.
	HQBranch string
	// LowIdealFactor: stock below ideal pieces * factor is flagged LOW.
	LowIdealFactor float64
	// LowRateFactor: stock below monthly consumption pieces * factor is LOW.
	LowRateFactor float64
	// RecentWindowDays is the lookback for recent order / invoice flags.
	RecentWindowDays int
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "pharmastock")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_SNAPSHOT_TTL_SECONDS", 60)
		viper.SetDefault("VENDOR_BASE_URL", "")
		viper.SetDefault("VENDOR_TOKEN", "")
		viper.SetDefault("VENDOR_TIMEOUT_SECONDS", 60)
		viper.SetDefault("VENDOR_BRANCHES", []string{})
		viper.SetDefault("REFRESH_LOCK_NAME", "global")
		viper.SetDefault("REFRESH_LOCK_TIMEOUT_SECONDS", 3600)
		viper.SetDefault("REFRESH_RETENTION_DAYS", 30)
		viper.SetDefault("REFRESH_WORKER_COUNT", 4)
		viper.SetDefault("REFRESH_INTERVAL_MINUTES", 60)
		viper.SetDefault("REFRESH_STATUS_PORT", "8081")
		viper.SetDefault("STOCK_HQ_COMPANY", "NILA")
		viper.SetDefault("STOCK_HQ_BRANCH", "BABA DOGO HQ")
		viper.SetDefault("STOCK_LOW_IDEAL_FACTOR", 0.5)
		viper.SetDefault("STOCK_LOW_RATE_FACTOR", 0.3)
		viper.SetDefault("STOCK_RECENT_WINDOW_DAYS", 7)
		viper.SetDefault("ARCHIVE_ENABLED", false)
		viper.SetDefault("ARCHIVE_ENDPOINT", "")
		viper.SetDefault("ARCHIVE_ACCESS_KEY", "")
		viper.SetDefault("ARCHIVE_SECRET_KEY", "")
		viper.SetDefault("ARCHIVE_BUCKET", "stock-exports")
		viper.SetDefault("ARCHIVE_REGION", "us-east-1")
		viper.SetDefault("ARCHIVE_USE_SSL", true)
		viper.SetDefault("ARCHIVE_PREFIX", "snapshots")

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				SnapshotTTLSeconds: viper.GetInt("CACHE_SNAPSHOT_TTL_SECONDS"),
			},
			Vendor: VendorConfig{
				BaseURL:        viper.GetString("VENDOR_BASE_URL"),
				Token:          viper.GetString("VENDOR_TOKEN"),
				TimeoutSeconds: viper.GetInt("VENDOR_TIMEOUT_SECONDS"),
				Branches:       viper.GetStringSlice("VENDOR_BRANCHES"),
			},
			Refresh: RefreshConfig{
				LockName:           viper.GetString("REFRESH_LOCK_NAME"),
				LockTimeoutSeconds: viper.GetInt("REFRESH_LOCK_TIMEOUT_SECONDS"),
				RetentionDays:      viper.GetInt("REFRESH_RETENTION_DAYS"),
				WorkerCount:        viper.GetInt("REFRESH_WORKER_COUNT"),
				IntervalMinutes:    viper.GetInt("REFRESH_INTERVAL_MINUTES"),
				StatusPort:         viper.GetString("REFRESH_STATUS_PORT"),
			},
			Stock: StockConfig{
				HQCompany:        viper.GetString("STOCK_HQ_COMPANY"),
				HQBranch:         viper.GetString("STOCK_HQ_BRANCH"),
				LowIdealFactor:   viper.GetFloat64("STOCK_LOW_IDEAL_FACTOR"),
				LowRateFactor:    viper.GetFloat64("STOCK_LOW_RATE_FACTOR"),
				RecentWindowDays: viper.GetInt("STOCK_RECENT_WINDOW_DAYS"),
			},
			Archive: ArchiveConfig{
				Enabled:   viper.GetBool("ARCHIVE_ENABLED"),
				AccessKey: viper.GetString("ARCHIVE_ACCESS_KEY"),
				SecretKey: viper.GetString("ARCHIVE_SECRET_KEY"),
				Endpoint:  viper.GetString("ARCHIVE_ENDPOINT"),
				Bucket:    viper.GetString("ARCHIVE_BUCKET"),
				Region:    viper.GetString("ARCHIVE_REGION"),
				UseSSL:    viper.GetBool("ARCHIVE_USE_SSL"),
				Prefix:    viper.GetString("ARCHIVE_PREFIX"),
			},
		}
	})

	return instance
}
