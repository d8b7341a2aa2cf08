package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EnrichConfig configures the per-lead enrichment unit.
type EnrichConfig struct {
	ProviderTimeoutSecs     int    `yaml:"provider_timeout_secs" mapstructure:"provider_timeout_secs"`
	SlowProviderTimeoutSecs int    `yaml:"slow_provider_timeout_secs" mapstructure:"slow_provider_timeout_secs"`
	ScoringPath             string `yaml:"scoring_path" mapstructure:"scoring_path"`
}

// ProviderTimeout returns the default per-provider evaluation deadline.
func (c EnrichConfig) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSecs) * time.Second
}

// SlowProviderTimeout returns the deadline for slow lookup classes
// (registry listings, archive history).
func (c EnrichConfig) SlowProviderTimeout() time.Duration {
	return time.Duration(c.SlowProviderTimeoutSecs) * time.Second
}

// BatchConfig configures batch processing within a job.
type BatchConfig struct {
	Size               int `yaml:"size" mapstructure:"size"`
	DelayMs            int `yaml:"delay_ms" mapstructure:"delay_ms"`
	HighScoreThreshold int `yaml:"high_score_threshold" mapstructure:"high_score_threshold"`
}

// Delay returns the pause between consecutive batches.
func (c BatchConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// SchedulerConfig configures the job worker pool.
type SchedulerConfig struct {
	Concurrency     int `yaml:"concurrency" mapstructure:"concurrency"`
	QueueDepth      int `yaml:"queue_depth" mapstructure:"queue_depth"`
	StallWindowSecs int `yaml:"stall_window_secs" mapstructure:"stall_window_secs"`
}

// StallWindow returns how long a processing job may go without a
// persisted update before the stall detector warns.
func (c SchedulerConfig) StallWindow() time.Duration {
	return time.Duration(c.StallWindowSecs) * time.Second
}

// ExportConfig configures the results artifact exporter.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP server.
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
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("enrich.provider_timeout_secs", 10)
	v.SetDefault("enrich.slow_provider_timeout_secs", 15)
	v.SetDefault("batch.size", 5)
	v.SetDefault("batch.delay_ms", 1000)
	v.SetDefault("batch.high_score_threshold", 70)
	v.SetDefault("scheduler.concurrency", 3)
	v.SetDefault("scheduler.queue_depth", 64)
	v.SetDefault("scheduler.stall_window_secs", 120)
	v.SetDefault("export.dir", "exports")
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

// Validate checks that configuration values required for the given mode
// are present and within bounds. Mode is "serve" or "enrich".
func (c *Config) Validate(mode string) error {
	var missing []string

	if c.Batch.Size < 1 || c.Batch.Size > 100 {
		missing = append(missing, "batch.size must be between 1 and 100")
	}
	if c.Batch.HighScoreThreshold < 0 || c.Batch.HighScoreThreshold > 100 {
		missing = append(missing, "batch.high_score_threshold must be between 0 and 100")
	}
	if c.Scheduler.Concurrency < 1 || c.Scheduler.Concurrency > 10 {
		missing = append(missing, "scheduler.concurrency must be between 1 and 10")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url is required for the postgres driver")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "enrich":
		// No extra requirements beyond the common checks.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return nil
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
