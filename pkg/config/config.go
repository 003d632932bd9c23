package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "F1TELEMETRY"

type Config struct {
	Provider  ProviderConfig  `mapstructure:"provider"`
	Season    SeasonConfig    `mapstructure:"season"`
	Charts    ChartsConfig    `mapstructure:"charts"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Webserver WebserverConfig `mapstructure:"webserver"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ProviderConfig points at the telemetry service and the Ergast-compatible
// schedule service.
type ProviderConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	ScheduleURL string        `mapstructure:"schedule_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SeasonConfig struct {
	Year            int           `mapstructure:"year"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Concurrency     int           `mapstructure:"concurrency"`
}

type ChartsConfig struct {
	OutputDir string  `mapstructure:"output_dir"`
	Save      bool    `mapstructure:"save"`
	Width     float64 `mapstructure:"width_cm"`
	Height    float64 `mapstructure:"height_cm"`
	LineWidth float64 `mapstructure:"line_width"`
	FontSize  float64 `mapstructure:"font_size"`
	Dark      bool    `mapstructure:"dark"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Debug   bool   `mapstructure:"debug"`
}

type WebserverConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type StorageConfig struct {
	DBPath       string `mapstructure:"db_path"`
	CacheEnabled bool   `mapstructure:"cache_enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration file at path (optional) and lets
// F1TELEMETRY_* environment variables override any key.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.base_url", "http://localhost:10001")
	v.SetDefault("provider.schedule_url", "https://api.jolpi.ca/ergast/f1")
	v.SetDefault("provider.timeout", "30s")

	v.SetDefault("season.year", 2023)
	v.SetDefault("season.refresh_interval", "60m")
	v.SetDefault("season.concurrency", 4)

	v.SetDefault("charts.output_dir", ".")
	v.SetDefault("charts.save", false)
	v.SetDefault("charts.width_cm", 50)
	v.SetDefault("charts.height_cm", 25)
	v.SetDefault("charts.line_width", 1.5)
	v.SetDefault("charts.font_size", 12)
	v.SetDefault("charts.dark", true)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)

	v.SetDefault("webserver.enabled", false)
	v.SetDefault("webserver.address", ":8080")

	v.SetDefault("storage.db_path", "./f1telemetry-bot.db")
	v.SetDefault("storage.cache_enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.ScheduleURL == "" {
		return fmt.Errorf("provider.schedule_url is required")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if c.Season.Year < 1950 {
		return fmt.Errorf("season.year must be 1950 or later")
	}
	if c.Season.RefreshInterval < time.Minute {
		return fmt.Errorf("season.refresh_interval must be at least 1 minute")
	}
	if c.Season.Concurrency < 1 {
		return fmt.Errorf("season.concurrency must be at least 1")
	}
	if c.Charts.Width <= 0 || c.Charts.Height <= 0 {
		return fmt.Errorf("charts.width_cm and charts.height_cm must be positive")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required when telegram is enabled")
	}
	if c.Webserver.Enabled && c.Webserver.Address == "" {
		return fmt.Errorf("webserver.address is required when the webserver is enabled")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	return nil
}
