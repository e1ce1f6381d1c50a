// Package config loads application configuration and wires the global
// logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Comtrade ComtradeConfig `yaml:"comtrade" mapstructure:"comtrade"`
	FedReg   FedRegConfig   `yaml:"fedreg" mapstructure:"fedreg"`
	FRED     FREDConfig     `yaml:"fred" mapstructure:"fred"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Policy   PolicyConfig   `yaml:"policy" mapstructure:"policy"`
	Breaker  BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ComtradeConfig holds UN Comtrade API settings.
type ComtradeConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FedRegConfig holds Federal Register API settings.
type FedRegConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FREDConfig holds FRED API settings. The econ source is skipped when no
// key is provisioned.
type FREDConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Series  string `yaml:"series" mapstructure:"series"`
}

// CacheConfig configures the snapshot cache.
type CacheConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// FetchConfig configures the shared HTTP layer.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// PolicyConfig points at an optional policy override file.
type PolicyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BreakerConfig configures the per-source circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TARIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("comtrade.base_url", "https://comtradeapi.un.org/public/v1")
	v.SetDefault("fedreg.base_url", "https://www.federalregister.gov/api/v1")
	v.SetDefault("fred.base_url", "https://api.stlouisfed.org/fred")
	v.SetDefault("fred.series", "WPU0812")
	v.SetDefault("cache.path", "tariff-cache.db")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "tariff-radar/1.0")
	v.SetDefault("breaker.failure_threshold", 3)
	v.SetDefault("breaker.reset_timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
