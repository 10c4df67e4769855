package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Engines  EnginesConfig  `koanf:"engines"`
	Call     CallConfig     `koanf:"call"`
	Classify ClassifyConfig `koanf:"classify"`
	Lock     LockConfig     `koanf:"lock"`
	Recall   RecallConfig   `koanf:"recall"`
	Notify   NotifyConfig   `koanf:"notify"`
	Janitor  JanitorConfig  `koanf:"janitor"`
	Project  ProjectConfig  `koanf:"project"`
}

type ServerConfig struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

type StoreConfig struct {
	DataDir string `koanf:"data_dir"`
}

type EngineRegistry struct {
	Name     string `koanf:"name"`
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
}

type EnginesConfig struct {
	Default          string           `koanf:"default"`
	Fallback         string           `koanf:"fallback"`
	Embedding        string           `koanf:"embedding"`
	FallbackAttempts int              `koanf:"fallback_attempts"`
	Registry         []EngineRegistry `koanf:"registry"`
}

type CallConfig struct {
	MaxAttempts int     `koanf:"max_attempts"`
	Timeout     string  `koanf:"timeout"`
	BaseDelay   string  `koanf:"base_delay"`
	MaxDelay    string  `koanf:"max_delay"`
	Multiplier  float64 `koanf:"multiplier"`
}

type ClassifyConfig struct {
	MaxExcerptChars int  `koanf:"max_excerpt_chars"`
	DeepDiveMax     int  `koanf:"deep_dive_max"`
	MaxTokens       int  `koanf:"max_tokens"`
	Debug           bool `koanf:"debug"`
}

type LockConfig struct {
	FlockRetry    string `koanf:"flock_retry"`
	FlockMaxRetry int    `koanf:"flock_max_retry"`
	StaleAfter    string `koanf:"stale_after"`
}

type RecallConfig struct {
	Enabled bool `koanf:"enabled"`
}

type NotifyConfig struct {
	Slack    SlackConfig    `koanf:"slack"`
	Telegram TelegramConfig `koanf:"telegram"`
}

type SlackConfig struct {
	Token   string `koanf:"token"`
	Channel string `koanf:"channel"`
}

type TelegramConfig struct {
	Token  string `koanf:"token"`
	ChatID int64  `koanf:"chat_id"`
}

type JanitorConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Schedule string `koanf:"schedule"`
}

type ProjectConfig struct {
	Path string `koanf:"path"`
}

// Load builds the configuration from defaults, the config file,
// TABWARDEN_-prefixed environment variables, and CLI flags, in that order.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":           DefaultLogLevel,
		"server.log_format":          DefaultLogFormat,
		"store.data_dir":             filepath.Join(os.Getenv("HOME"), ".tabwarden"),
		"engines.default":            DefaultEngineDefault,
		"engines.fallback":           DefaultEngineFallback,
		"engines.embedding":          DefaultEngineEmbedding,
		"engines.fallback_attempts":  DefaultEngineFallbackAttempts,
		"engines.registry": []EngineRegistry{
			{Name: DefaultEngineDefault, Provider: "openai", Model: "gpt-4o-mini"},
			{Name: DefaultEngineFallback, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
		},
		"call.max_attempts":          DefaultCallMaxAttempts,
		"call.timeout":               DefaultCallTimeout,
		"call.base_delay":            DefaultCallBaseDelay,
		"call.max_delay":             DefaultCallMaxDelay,
		"call.multiplier":            DefaultCallMultiplier,
		"classify.max_excerpt_chars": DefaultClassifyMaxExcerptChars,
		"classify.deep_dive_max":     DefaultClassifyDeepDiveMax,
		"classify.max_tokens":        DefaultClassifyMaxTokens,
		"classify.debug":             false,
		"lock.flock_retry":           DefaultLockFlockRetry,
		"lock.flock_max_retry":       DefaultLockFlockMaxRetry,
		"lock.stale_after":           DefaultLockStaleAfter,
		"recall.enabled":             false,
		"janitor.enabled":            DefaultJanitorEnabled,
		"janitor.schedule":           DefaultJanitorSchedule,
		"project.path":               "",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".tabwarden", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("TABWARDEN_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TABWARDEN_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, e := range cfg.Engines.Registry {
		if e.Provider == "" {
			cfg.Engines.Registry[i].Provider = "openai"
		}
		if e.Model == "" {
			cfg.Engines.Registry[i].Model = e.Name
		}
	}

	return &cfg, nil
}
