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
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Geocoder GeocoderConfig `yaml:"geocoder" mapstructure:"geocoder"`
	Dataset  DatasetConfig  `yaml:"dataset" mapstructure:"dataset"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// GeocoderConfig configures the geocoding providers.
type GeocoderConfig struct {
	GoogleKey   string  `yaml:"google_key" mapstructure:"google_key"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// DatasetConfig configures the region dataset backend.
type DatasetConfig struct {
	Driver      string  `yaml:"driver" mapstructure:"driver"`
	Path        string  `yaml:"path" mapstructure:"path"`
	DatabaseURL string  `yaml:"database_url" mapstructure:"database_url"`
	OffsetDeg   float64 `yaml:"offset_deg" mapstructure:"offset_deg"`
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
	v.SetEnvPrefix("CRIMEGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("geocoder.timeout_secs", 5)
	v.SetDefault("geocoder.rate_limit", 10)
	v.SetDefault("dataset.driver", "sqlite")
	v.SetDefault("dataset.path", "crimegrid.db")
	v.SetDefault("dataset.offset_deg", 0.4)
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

// Validate checks the configuration for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
		if c.Geocoder.TimeoutSecs <= 0 {
			problems = append(problems, "geocoder.timeout_secs must be > 0")
		}
		problems = append(problems, c.datasetProblems()...)
	case "dataset":
		problems = append(problems, c.datasetProblems()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) datasetProblems() []string {
	var problems []string
	switch c.Dataset.Driver {
	case "sqlite":
		if c.Dataset.Path == "" {
			problems = append(problems, "dataset.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Dataset.DatabaseURL == "" {
			problems = append(problems, "dataset.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "dataset.driver must be sqlite or postgres")
	}
	if c.Dataset.OffsetDeg <= 0 {
		problems = append(problems, "dataset.offset_deg must be > 0")
	}
	return problems
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
