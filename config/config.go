package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalidConfiguration marks a missing or malformed static definition.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ContentGeneration configures the OpenAI-compatible content generator.
type ContentGeneration struct {
	Enabled        bool    `mapstructure:"enabled"`
	Model          string  `mapstructure:"model"`
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	Temperature    float32 `mapstructure:"temperature"`
}

// Progression tunes the stage progression engine.
type Progression struct {
	MaxConflictRetries int `mapstructure:"max_conflict_retries"`
	TrailingWindow     int `mapstructure:"trailing_window"`
}

// StageOverride adjusts selected fields of a built-in stage definition.
type StageOverride struct {
	ID                  int      `mapstructure:"id"`
	DurationDays        *int     `mapstructure:"duration_days"`
	CompletionThreshold *float64 `mapstructure:"completion_threshold"`
	MinReflections      *int     `mapstructure:"min_reflections"`
	GoalCount           *int     `mapstructure:"goal_count"`
	TasksPerGoal        *int     `mapstructure:"tasks_per_goal"`
}

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		DSN string `mapstructure:"dsn"` // "memory" or a file path for SQLite
	} `mapstructure:"database"`
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
	ContentGeneration ContentGeneration `mapstructure:"content_generation"`
	Progression       Progression       `mapstructure:"progression"`
	Scoring           struct {
		DimensionWeights map[string]float64 `mapstructure:"dimension_weights"`
	} `mapstructure:"scoring"`
	Stages []StageOverride `mapstructure:"stages"`
}

// LoadConfig loads configuration from file and environment variables.
// configPath may be empty, in which case ./config and . are searched for config.yaml.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("../config") // For running from locations like tests
	}

	v.SetDefault("server.port", "8080")
	v.SetDefault("database.dsn", "memory")
	v.SetDefault("log.level", "info")
	v.SetDefault("content_generation.enabled", false)
	v.SetDefault("content_generation.model", "gpt-4o-mini")
	v.SetDefault("content_generation.base_url", "https://api.openai.com/v1")
	v.SetDefault("content_generation.api_key", "")
	v.SetDefault("content_generation.timeout_seconds", 20)
	v.SetDefault("content_generation.temperature", 0.4)
	v.SetDefault("progression.max_conflict_retries", 3)
	v.SetDefault("progression.trailing_window", 14)

	v.SetEnvPrefix("KARVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading configuration file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.Progression.MaxConflictRetries < 0 {
		return nil, fmt.Errorf("%w: progression.max_conflict_retries must not be negative", ErrInvalidConfiguration)
	}
	if cfg.Progression.TrailingWindow <= 0 {
		return nil, fmt.Errorf("%w: progression.trailing_window must be positive", ErrInvalidConfiguration)
	}
	if cfg.ContentGeneration.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("%w: content_generation.timeout_seconds must be positive", ErrInvalidConfiguration)
	}
	return &cfg, nil
}
