package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type NotifyConfig struct {
	DismissMs        int `yaml:"dismiss_ms"`
	StalledDismissMs int `yaml:"stalled_dismiss_ms"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type Config struct {
	Server            string `yaml:"server"`
	RequestTimeoutSec int    `yaml:"request_timeout_seconds"`

	// session timing; defaults match the web UI
	WatchdogSec    int `yaml:"watchdog_seconds"`
	RefreshGraceMs int `yaml:"refresh_grace_ms"`

	PageSize int    `yaml:"page_size"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	Notify   NotifyConfig   `yaml:"notify"`
	Telegram TelegramConfig `yaml:"telegram"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	c.Server = strings.TrimRight(strings.TrimSpace(c.Server), "/")
	if c.Server == "" {
		c.Server = "http://127.0.0.1:8088"
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = 10
	}
	if c.WatchdogSec <= 0 {
		c.WatchdogSec = 20
	}
	if c.RefreshGraceMs <= 0 {
		c.RefreshGraceMs = 400
	}
	if c.PageSize <= 0 {
		c.PageSize = 20
	}
	if c.DBPath == "" {
		c.DBPath = ".portscanner/console.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Notify.DismissMs <= 0 {
		c.Notify.DismissMs = 2500
	}
	if c.Notify.StalledDismissMs <= 0 {
		c.Notify.StalledDismissMs = 4000
	}
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c *Config) WatchdogTimeout() time.Duration {
	return time.Duration(c.WatchdogSec) * time.Second
}

func (c *Config) RefreshGrace() time.Duration {
	return time.Duration(c.RefreshGraceMs) * time.Millisecond
}

func (c *Config) NotifyDismiss() time.Duration {
	return time.Duration(c.Notify.DismissMs) * time.Millisecond
}

func (c *Config) StalledDismiss() time.Duration {
	return time.Duration(c.Notify.StalledDismissMs) * time.Millisecond
}
