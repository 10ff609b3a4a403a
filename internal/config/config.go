package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/garyjia/ai-procurement/internal/domain/evaluator"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// EnvPrefix prefixes every environment override, e.g. PROCUREMENT_SERVER_PORT
const EnvPrefix = "PROCUREMENT"

// Config holds all application configuration
type Config struct {
	Server     ServerConfig         `mapstructure:"server"`
	Database   DatabaseConfig       `mapstructure:"database"`
	OpenAI     OpenAIConfig         `mapstructure:"openai"`
	Lark       LarkConfig           `mapstructure:"lark"`
	Pipeline   PipelineConfig       `mapstructure:"pipeline"`
	Thresholds evaluator.Thresholds `mapstructure:"thresholds"`
	Report     ReportConfig         `mapstructure:"report"`
	Logger     LoggerConfig         `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration. Path and the sql pool fields
// apply to sqlite; DSN and MaxConns to postgres.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MaxConns        int32         `mapstructure:"max_conns"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	PromptsPath string  `mapstructure:"prompts_path"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	AppID          string `mapstructure:"app_id"`
	AppSecret      string `mapstructure:"app_secret"`
	ReviewerChatID string `mapstructure:"reviewer_chat_id"`
	BaseURL        string `mapstructure:"base_url"`
}

// PipelineConfig tunes stage execution and the background worker
type PipelineConfig struct {
	DecisionTimeout        time.Duration `mapstructure:"decision_timeout"`
	DecisionMaxRetries     int           `mapstructure:"decision_max_retries"`
	DecisionInitialBackoff time.Duration `mapstructure:"decision_initial_backoff"`
	CheckWorkers           int           `mapstructure:"check_workers"`
	SaveRetries            int           `mapstructure:"save_retries"`
	WorkerEnabled          bool          `mapstructure:"worker_enabled"`
	WorkerPollInterval     time.Duration `mapstructure:"worker_poll_interval"`
	WorkerConcurrency      int           `mapstructure:"worker_concurrency"`
	WorkerBatchSize        int           `mapstructure:"worker_batch_size"`
}

// ReportConfig holds report export configuration
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configPath (optional) and environment overrides. A missing
// file is an error only when a path was given explicitly.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{Thresholds: evaluator.DefaultThresholds()}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadOptional is Load that ignores a default path that does not exist
func LoadOptional(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return Load("")
		}
	}
	return Load(configPath)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/procurement.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("openai.enabled", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.max_tokens", 600)

	v.SetDefault("lark.enabled", false)

	v.SetDefault("pipeline.decision_timeout", 5*time.Second)
	v.SetDefault("pipeline.decision_max_retries", 2)
	v.SetDefault("pipeline.decision_initial_backoff", 200*time.Millisecond)
	v.SetDefault("pipeline.check_workers", 4)
	v.SetDefault("pipeline.save_retries", 2)
	v.SetDefault("pipeline.worker_enabled", true)
	v.SetDefault("pipeline.worker_poll_interval", 10*time.Second)
	v.SetDefault("pipeline.worker_concurrency", 4)
	v.SetDefault("pipeline.worker_batch_size", 20)

	v.SetDefault("report.output_dir", "reports")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars maps the conventional secret names next to the prefixed ones
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string][]string{
		"openai.api_key":        {"PROCUREMENT_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"lark.app_id":           {"PROCUREMENT_LARK_APP_ID", "LARK_APP_ID"},
		"lark.app_secret":       {"PROCUREMENT_LARK_APP_SECRET", "LARK_APP_SECRET"},
		"lark.reviewer_chat_id": {"PROCUREMENT_LARK_REVIEWER_CHAT_ID", "LARK_REVIEWER_CHAT_ID"},
		"database.dsn":          {"PROCUREMENT_DATABASE_DSN", "DATABASE_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required when openai is enabled")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" || c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
		}
		if c.Lark.ReviewerChatID == "" {
			return fmt.Errorf("lark.reviewer_chat_id is required when lark is enabled")
		}
	}

	p := c.Pipeline
	if p.DecisionTimeout <= 0 {
		return fmt.Errorf("pipeline.decision_timeout must be positive")
	}
	if p.DecisionMaxRetries < 0 || p.SaveRetries < 0 {
		return fmt.Errorf("pipeline retries cannot be negative")
	}
	if p.CheckWorkers <= 0 {
		return fmt.Errorf("pipeline.check_workers must be positive")
	}
	if p.WorkerEnabled && (p.WorkerPollInterval <= 0 || p.WorkerConcurrency <= 0) {
		return fmt.Errorf("pipeline.worker_poll_interval and worker_concurrency must be positive")
	}

	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	return nil
}
