package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Market   MarketConfig   `mapstructure:"market"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LiveURL is the websocket address of the live feed served on Addr.
func (c ServerConfig) LiveURL() string {
	host := c.Addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "ws://" + host + "/api/live"
}

// MarketConfig holds the two market-data REST providers.
type MarketConfig struct {
	CoinGeckoURL     string        `mapstructure:"coingecko_url"`
	CryptoCompareURL string        `mapstructure:"cryptocompare_url"`
	Currency         string        `mapstructure:"currency"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	APIKeyParam  string        `mapstructure:"api_key_param"` // SSM parameter name used in prod
	Timeout      time.Duration `mapstructure:"timeout"`
	RequestPause time.Duration `mapstructure:"request_pause"` // pause between bulk recommendations
}

type MonitorConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	MaxPoints    int           `mapstructure:"max_points"`
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`
}

// StorageConfig selects the durable key-value store backing the followed set.
type StorageConfig struct {
	Driver     string      `mapstructure:"driver"` // "memory", "sqlite", "postgres" or "redis"
	SQLitePath string      `mapstructure:"sqlite_path"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	var dir string
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		dir = filepath.Join(pwd, "../../config")
	} else {
		dir = filepath.Join(filepath.Dir(ex), "../config")
	}

	cfg, err := LoadFrom(dir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom reads config.yaml from dir (if present), a .env file from the
// working directory (if present) and environment variables, in increasing
// order of precedence.
func LoadFrom(dir string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	// Support environment variables with dot notation (e.g., OPENAI_API_KEY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("market.coingecko_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.cryptocompare_url", "https://min-api.cryptocompare.com")
	v.SetDefault("market.currency", "USD")
	v.SetDefault("market.timeout", 10*time.Second)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.api_key_param", "CRYPTOBOARD_OPENAI_API_KEY")
	v.SetDefault("openai.timeout", 30*time.Second)
	v.SetDefault("openai.request_pause", 500*time.Millisecond)

	v.SetDefault("monitor.interval", time.Second)
	v.SetDefault("monitor.max_points", 60)
	v.SetDefault("monitor.cycle_timeout", 5*time.Second)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/cryptoboard.db")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "cryptoboard")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("storage.driver must be one of memory, sqlite, postgres, redis: got %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "sqlite" && c.Storage.SQLitePath == "" {
		return errors.New("storage.sqlite_path is required for the sqlite driver")
	}
	if c.Monitor.Interval < time.Second {
		return fmt.Errorf("monitor.interval must be at least 1s: got %s", c.Monitor.Interval)
	}
	if c.Monitor.MaxPoints <= 0 {
		return errors.New("monitor.max_points must be positive")
	}
	if c.Market.CoinGeckoURL == "" || c.Market.CryptoCompareURL == "" {
		return errors.New("market.coingecko_url and market.cryptocompare_url are required")
	}
	return nil
}
