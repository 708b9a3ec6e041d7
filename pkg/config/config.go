// Package config loads pasteboard settings from YAML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/insanj/TodoFast/pkg/archive"
)

// Config is the root application configuration.
type Config struct {
	// AppName is used as the root logger name.
	AppName string `mapstructure:"app_name"`

	// DataDir is where the sqlite slot database lives unless Store.Path says
	// otherwise.
	DataDir string `mapstructure:"data_dir"`

	Log      LogConfig      `mapstructure:"log"`
	Producer ProducerConfig `mapstructure:"producer"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Store    StoreConfig    `mapstructure:"store"`
	Launch   LaunchConfig   `mapstructure:"launch"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ProducerConfig identifies the publishing application.
type ProducerConfig struct {
	AppID string `mapstructure:"app_id"`
}

// ExchangeConfig mirrors the exchange.Channel options.
type ExchangeConfig struct {
	ShowErrorAlerts bool          `mapstructure:"show_error_alerts"`
	TaskSlot        string        `mapstructure:"task_slot"`
	NoteSlot        string        `mapstructure:"note_slot"`
	SlotTTL         time.Duration `mapstructure:"slot_ttl"`
	// Format: cbor or proto
	Format string `mapstructure:"format"`
}

// StoreConfig selects the slot backend.
type StoreConfig struct {
	// Kind: memory or sqlite
	Kind     string `mapstructure:"kind"`
	Path     string `mapstructure:"path"`
	MaxBytes uint64 `mapstructure:"max_bytes"`
}

// LaunchConfig maps URL schemes to the command run for them. "{url}" in
// an argument is replaced with the launch URL.
type LaunchConfig struct {
	Handlers map[string][]string `mapstructure:"handlers"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		AppName: "pasteboard",
		DataDir: "./data",
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "logs/pasteboard.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Exchange: ExchangeConfig{
			ShowErrorAlerts: true,
			TaskSlot:        "com.appigo.pasteboard.task",
			NoteSlot:        "com.appigo.pasteboard.note",
			Format:          "cbor",
		},
		Store: StoreConfig{Kind: "sqlite"},
	}
}

// Load reads configuration from path when non-empty, otherwise from
// $PASTEBOARD_CONFIG or a pasteboard.yaml found in ".", "./configs" or
// ~/.pasteboard. Environment variables use the PASTEBOARD prefix with `.`
// and `-` replaced by `_`, e.g. PASTEBOARD_EXCHANGE_SLOT_TTL=10m.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PASTEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// env-only overrides need every key registered
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("producer.app_id", cfg.Producer.AppID)
	v.SetDefault("exchange.show_error_alerts", cfg.Exchange.ShowErrorAlerts)
	v.SetDefault("exchange.task_slot", cfg.Exchange.TaskSlot)
	v.SetDefault("exchange.note_slot", cfg.Exchange.NoteSlot)
	v.SetDefault("exchange.slot_ttl", cfg.Exchange.SlotTTL)
	v.SetDefault("exchange.format", cfg.Exchange.Format)
	v.SetDefault("store.kind", cfg.Store.Kind)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.max_bytes", cfg.Store.MaxBytes)

	if path == "" {
		path = os.Getenv("PASTEBOARD_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pasteboard")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pasteboard"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	c.Exchange.Format = strings.ToLower(strings.TrimSpace(c.Exchange.Format))
	if _, err := archive.ParseFormat(c.Exchange.Format); err != nil {
		return fmt.Errorf("invalid exchange.format: %w", err)
	}
	if c.Exchange.SlotTTL < 0 {
		return fmt.Errorf("invalid exchange.slot_ttl: %s", c.Exchange.SlotTTL)
	}
	c.Exchange.TaskSlot = strings.TrimSpace(c.Exchange.TaskSlot)
	c.Exchange.NoteSlot = strings.TrimSpace(c.Exchange.NoteSlot)
	if c.Exchange.TaskSlot != "" && c.Exchange.TaskSlot == c.Exchange.NoteSlot {
		return fmt.Errorf("exchange.task_slot and exchange.note_slot are both %q", c.Exchange.TaskSlot)
	}

	c.Store.Kind = strings.ToLower(strings.TrimSpace(c.Store.Kind))
	switch c.Store.Kind {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			c.Store.Path = filepath.Join(c.DataDir, "pasteboard.db")
		}
	default:
		return fmt.Errorf("invalid store.kind: %q", c.Store.Kind)
	}
	for scheme, argv := range c.Launch.Handlers {
		if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
			return fmt.Errorf("launch.handlers.%s: empty command", scheme)
		}
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
