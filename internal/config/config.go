package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Ledger   LedgerConfig
	Log      LogConfig
	Payment  PaymentConfig
	Order    OrderConfig
	Sync     SyncConfig
	Menu     MenuConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type LedgerConfig struct {
	Path string
}

type LogConfig struct {
	Level    string
	Encoding string
	Service  string
}

type PaymentConfig struct {
	Window           time.Duration
	TestMode         bool
	SessionRetention time.Duration
	Currency         string
}

type OrderConfig struct {
	TaxRate              decimal.Decimal
	MaxRetryAttempts     int
	DefaultEstimatedTime int
}

type SyncConfig struct {
	PollInterval time.Duration
	ViewCacheTTL time.Duration
}

type MenuConfig struct {
	SeedFile string
}

func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("STORAGE_DRIVER", StorageMySQL)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "canteen")
	v.SetDefault("DB_PASSWORD", "secret")
	v.SetDefault("DB_NAME", "canteen")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "canteen.orders")
	v.SetDefault("LEDGER_PATH", "./data/reconciliation.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
	v.SetDefault("SERVICE_NAME", "canteen")
	v.SetDefault("PAYMENT_WINDOW", "7m")
	v.SetDefault("PAYMENT_TEST_MODE", false)
	v.SetDefault("PAYMENT_SESSION_RETENTION", "30m")
	v.SetDefault("PAYMENT_CURRENCY", "INR")
	v.SetDefault("ORDER_TAX_RATE", "0.05")
	v.SetDefault("ORDER_MAX_RETRY_ATTEMPTS", 3)
	v.SetDefault("ORDER_DEFAULT_ESTIMATED_TIME", 15)
	v.SetDefault("SYNC_POLL_INTERVAL", "5s")
	v.SetDefault("VIEW_CACHE_TTL", "30s")
	v.SetDefault("MENU_SEED_FILE", "")

	connMaxLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}

	paymentWindow, err := positiveDuration(v, "PAYMENT_WINDOW")
	if err != nil {
		return nil, err
	}

	retention, err := positiveDuration(v, "PAYMENT_SESSION_RETENTION")
	if err != nil {
		return nil, err
	}

	pollInterval, err := positiveDuration(v, "SYNC_POLL_INTERVAL")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := positiveDuration(v, "VIEW_CACHE_TTL")
	if err != nil {
		return nil, err
	}

	taxRate, err := decimal.NewFromString(v.GetString("ORDER_TAX_RATE"))
	if err != nil {
		return nil, fmt.Errorf("parsing ORDER_TAX_RATE: %w", err)
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("ORDER_TAX_RATE must be non-negative")
	}

	driver := v.GetString("STORAGE_DRIVER")
	if driver != StorageMySQL && driver != StorageMemory {
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", driver)
	}

	maxRetries := v.GetInt("ORDER_MAX_RETRY_ATTEMPTS")
	if maxRetries < 1 {
		maxRetries = 1
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
		},
		Storage: StorageConfig{
			Driver: driver,
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		AMQP: AMQPConfig{
			URL:      v.GetString("AMQP_URL"),
			Exchange: v.GetString("AMQP_EXCHANGE"),
		},
		Ledger: LedgerConfig{
			Path: v.GetString("LEDGER_PATH"),
		},
		Log: LogConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
			Service:  v.GetString("SERVICE_NAME"),
		},
		Payment: PaymentConfig{
			Window:           paymentWindow,
			TestMode:         v.GetBool("PAYMENT_TEST_MODE"),
			SessionRetention: retention,
			Currency:         v.GetString("PAYMENT_CURRENCY"),
		},
		Order: OrderConfig{
			TaxRate:              taxRate,
			MaxRetryAttempts:     maxRetries,
			DefaultEstimatedTime: v.GetInt("ORDER_DEFAULT_ESTIMATED_TIME"),
		},
		Sync: SyncConfig{
			PollInterval: pollInterval,
			ViewCacheTTL: cacheTTL,
		},
		Menu: MenuConfig{
			SeedFile: v.GetString("MENU_SEED_FILE"),
		},
	}

	return cfg, nil
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
