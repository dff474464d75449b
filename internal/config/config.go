package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Source struct {
		Path  string `yaml:"path"`
		Watch bool   `yaml:"watch"`
		Mock  bool   `yaml:"mock"`
	} `yaml:"source"`
	Schedule struct {
		SnapshotCron string `yaml:"snapshot_cron"`
		ReportCron   string `yaml:"report_cron"`
		PruneCron    string `yaml:"prune_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Archive struct {
		Path     string `yaml:"path"`
		Compress bool   `yaml:"compress"`
	} `yaml:"archive"`
	Telegram struct {
		BotToken      string  `yaml:"bot_token"`
		ChatID        string  `yaml:"chat_id"`
		RatePerMinute float64 `yaml:"rate_per_minute"`
	} `yaml:"telegram"`
	Report struct {
		Limit int `yaml:"limit"`
	} `yaml:"report"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults cover every field.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SCORES_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("SCORES_WATCH"); v != "" {
		cfg.Source.Watch = v == "true" || v == "1"
	}
	if v := os.Getenv("CRON_SNAPSHOT"); v != "" {
		cfg.Schedule.SnapshotCron = v
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		cfg.Schedule.ReportCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("REPORT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Report.Limit = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Source.Path == "" {
		cfg.Source.Path = "data/scores.yaml"
	}
	if cfg.Schedule.SnapshotCron == "" {
		cfg.Schedule.SnapshotCron = "0 0 */6 * * *"
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 0 8 * * *"
	}
	if cfg.Schedule.PruneCron == "" {
		cfg.Schedule.PruneCron = "0 30 3 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/instability.db"
	}
	if cfg.Telegram.RatePerMinute == 0 {
		cfg.Telegram.RatePerMinute = 20
	}
	if cfg.Report.Limit == 0 {
		cfg.Report.Limit = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that schedules parse and numeric settings are sane.
func (c *Config) Validate() error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.snapshot_cron": c.Schedule.SnapshotCron,
		"schedule.report_cron":   c.Schedule.ReportCron,
		"schedule.prune_cron":    c.Schedule.PruneCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Source.Path == "" && !c.Source.Mock {
		return fmt.Errorf("source.path is required unless source.mock is set")
	}
	if c.Report.Limit < 0 {
		return fmt.Errorf("report.limit must not be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	if c.Telegram.RatePerMinute <= 0 {
		return fmt.Errorf("telegram.rate_per_minute must be positive")
	}
	return nil
}

// TelegramEnabled reports whether Telegram delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
