// Package config loads service configuration from an optional YAML file
// and the environment (WEBWATCH_ prefix, dots become underscores), with
// sane defaults for everything.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr           string   `mapstructure:"addr"`
	LogDir         string   `mapstructure:"log_dir"`
	LogLevel       string   `mapstructure:"log_level"`
	PublicAPIKeys  []string `mapstructure:"public_api_keys"`
	AdminAPIKeys   []string `mapstructure:"admin_api_keys"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	Checker   CheckerConfig   `mapstructure:"checker"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type CheckerConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRedirects  int           `mapstructure:"max_redirects"`
	VerifyTLS     bool          `mapstructure:"verify_tls"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Targets  []string      `mapstructure:"targets"`
}

type ArchiveConfig struct {
	// Driver is "postgres", "sqlite" or empty for no archive.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type AlertsConfig struct {
	SlackWebhook string        `mapstructure:"slack_webhook"`
	OnRecovery   bool          `mapstructure:"on_recovery"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
}

type RateLimitConfig struct {
	PublicRPM   int `mapstructure:"public_rpm"`
	PublicBurst int `mapstructure:"public_burst"`
	AdminRPM    int `mapstructure:"admin_rpm"`
	AdminBurst  int `mapstructure:"admin_burst"`
}

// Load reads path (may be empty for env/defaults only) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("addr", ":8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")
	v.SetDefault("public_api_keys", []string{})
	v.SetDefault("admin_api_keys", []string{})
	v.SetDefault("allowed_origins", []string{})

	v.SetDefault("checker.timeout", "10s")
	v.SetDefault("checker.max_redirects", 5)
	v.SetDefault("checker.verify_tls", true)
	v.SetDefault("checker.cache_ttl", "5m")
	v.SetDefault("checker.max_concurrent", 10)

	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.interval", "1m")
	v.SetDefault("watch.targets", []string{})

	v.SetDefault("archive.driver", "")
	v.SetDefault("archive.dsn", "")

	v.SetDefault("alerts.slack_webhook", "")
	v.SetDefault("alerts.on_recovery", true)
	v.SetDefault("alerts.cooldown", "15m")

	v.SetDefault("rate_limit.public_rpm", 120)
	v.SetDefault("rate_limit.public_burst", 60)
	v.SetDefault("rate_limit.admin_rpm", 60)
	v.SetDefault("rate_limit.admin_burst", 30)

	v.SetEnvPrefix("WEBWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with. The
// preflight binary runs exactly this before a deploy.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.Checker.Timeout <= 0 {
		return fmt.Errorf("checker.timeout must be positive, got %s", c.Checker.Timeout)
	}
	if c.Checker.MaxRedirects <= 0 {
		return fmt.Errorf("checker.max_redirects must be positive, got %d", c.Checker.MaxRedirects)
	}
	if c.Checker.CacheTTL <= 0 {
		return fmt.Errorf("checker.cache_ttl must be positive, got %s", c.Checker.CacheTTL)
	}
	if c.Checker.MaxConcurrent <= 0 {
		return fmt.Errorf("checker.max_concurrent must be positive, got %d", c.Checker.MaxConcurrent)
	}
	if c.Watch.Enabled && c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive when watching is enabled, got %s", c.Watch.Interval)
	}
	switch c.Archive.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("archive.driver must be postgres, sqlite or empty, got %q", c.Archive.Driver)
	}
	if c.Archive.Driver != "" && c.Archive.DSN == "" {
		return fmt.Errorf("archive.dsn required when archive.driver is set")
	}
	if c.RateLimit.PublicRPM <= 0 || c.RateLimit.AdminRPM <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}
