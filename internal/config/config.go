package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newthinker/strata/internal/core"
	"github.com/newthinker/strata/internal/router"
	"github.com/newthinker/strata/internal/storage/archive"
)

type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Collector CollectorConfig           `mapstructure:"collector"`
	Backtest  BacktestConfig            `mapstructure:"backtest"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Router    router.Config             `mapstructure:"router"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
	Log       LogConfig                 `mapstructure:"log"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	APIKey      string   `mapstructure:"api_key"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	JobTTLHours int      `mapstructure:"job_ttl_hours"`
	MaxJobs     int      `mapstructure:"max_jobs"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CollectorConfig selects the market data source.
type CollectorConfig struct {
	Provider   string        `mapstructure:"provider"` // "yahoo" or "parquet"
	DataDir    string        `mapstructure:"data_dir"` // parquet root
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	DefaultPeriod  string  `mapstructure:"default_period"`
}

type StorageConfig struct {
	History HistoryConfig `mapstructure:"history"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

// HistoryConfig holds the run history database. An empty path keeps
// history in memory.
type HistoryConfig struct {
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

// ArchiveConfig holds full-result archiving settings.
type ArchiveConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	archive.Config `mapstructure:",squash"`
}

// NotifierConfig configures one result notifier, keyed by type
// (telegram, webhook or email) in Config.Notifiers.
type NotifierConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	URL      string `mapstructure:"url"`
	// Email notifier fields
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// Webhook notifier fields
	Headers map[string]string `mapstructure:"headers"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix("STRATA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("reading config: %w", err))
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Collector: CollectorConfig{
			Provider:   "yahoo",
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		Backtest: BacktestConfig{
			InitialCapital: 10000,
			DefaultPeriod:  "1y",
		},
		Storage: StorageConfig{
			History: HistoryConfig{
				MaxEntries: 1000,
			},
			Archive: ArchiveConfig{
				Config: archive.Config{Type: "localfs"},
			},
		},
		Router: router.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJobs < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_jobs must be positive, got %d", c.Server.MaxJobs))
	}
	if c.Server.JobTTLHours < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("job_ttl_hours cannot be negative, got %d", c.Server.JobTTLHours))
	}

	switch c.Collector.Provider {
	case "yahoo":
	case "parquet":
		if c.Collector.DataDir == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("collector data_dir required when provider is parquet"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("collector provider must be yahoo or parquet, got %q", c.Collector.Provider))
	}
	if c.Collector.MaxRetries < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_retries cannot be negative, got %d", c.Collector.MaxRetries))
	}

	if c.Backtest.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Backtest.InitialCapital))
	}

	if c.Storage.Archive.Enabled {
		switch c.Storage.Archive.Type {
		case "localfs":
			if c.Storage.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required when type is localfs"))
			}
		case "s3":
			if c.Storage.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive s3 bucket required when type is s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("archive type must be localfs or s3, got %q", c.Storage.Archive.Type))
		}
	}

	if c.Router.MinTrades < 0 || c.Router.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("router min_trades and cooldown cannot be negative"))
	}
	for i := range c.Router.Rules {
		if err := c.Router.Rules[i].Validate(); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}

	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "telegram", "webhook", "email":
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown notifier %q", name))
		}
	}

	return nil
}
