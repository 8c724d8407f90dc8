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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Browser BrowserConfig `yaml:"browser" mapstructure:"browser"`
	Query   QueryConfig   `yaml:"query" mapstructure:"query"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the progress ledger backend.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ScrapeConfig configures the extraction run.
type ScrapeConfig struct {
	Concurrency      int `yaml:"concurrency" mapstructure:"concurrency"`
	TaskTimeoutSecs  int `yaml:"task_timeout_secs" mapstructure:"task_timeout_secs"`
	RunDeadlineSecs  int `yaml:"run_deadline_secs" mapstructure:"run_deadline_secs"`
	ReadyTimeoutSecs int `yaml:"ready_timeout_secs" mapstructure:"ready_timeout_secs"`
	MaxRevealClicks  int `yaml:"max_reveal_clicks" mapstructure:"max_reveal_clicks"`
}

// TaskTimeout returns the per-hotel probe budget.
func (c ScrapeConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSecs) * time.Second
}

// RunDeadline returns the overall run budget.
func (c ScrapeConfig) RunDeadline() time.Duration {
	return time.Duration(c.RunDeadlineSecs) * time.Second
}

// ReadyTimeout returns the content-ready wait budget.
func (c ScrapeConfig) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSecs) * time.Second
}

// BrowserConfig configures the rendering collaborator.
type BrowserConfig struct {
	Headless   bool    `yaml:"headless" mapstructure:"headless"`
	UserAgent  string  `yaml:"user_agent" mapstructure:"user_agent"`
	NavPerSec  float64 `yaml:"nav_per_sec" mapstructure:"nav_per_sec"`
	DelayMinMS int     `yaml:"delay_min_ms" mapstructure:"delay_min_ms"`
	DelayMaxMS int     `yaml:"delay_max_ms" mapstructure:"delay_max_ms"`
}

// QueryConfig configures search query construction.
type QueryConfig struct {
	Keyword    string   `yaml:"keyword" mapstructure:"keyword"`
	Categories []string `yaml:"categories" mapstructure:"categories"`
	Region     string   `yaml:"region" mapstructure:"region"`
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
	v.SetEnvPrefix("RATINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "ratings.db")
	v.SetDefault("scrape.concurrency", 4)
	v.SetDefault("scrape.task_timeout_secs", 30)
	v.SetDefault("scrape.run_deadline_secs", 1800)
	v.SetDefault("scrape.ready_timeout_secs", 6)
	v.SetDefault("scrape.max_reveal_clicks", 3)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	v.SetDefault("browser.nav_per_sec", 0.5)
	v.SetDefault("browser.delay_min_ms", 1500)
	v.SetDefault("browser.delay_max_ms", 4000)
	v.SetDefault("query.keyword", "hotel")
	v.SetDefault("query.categories", []string{"hotel", "inn", "resort", "motel", "lodge", "suites", "hostel"})
	v.SetDefault("query.region", "")
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
