package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	KB         KBConfig         `yaml:"kb"`
	Generation GenerationConfig `yaml:"generation"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
}

// AuthConfig contains authentication settings. An empty APIKey leaves
// the API open; set one to require bearer auth on protected routes.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// KBConfig contains knowledge base settings. Document lists left empty
// use the loader's built-in defaults.
type KBConfig struct {
	Path              string   `yaml:"path"`
	RequiredDocuments []string `yaml:"required_documents"`
	OptionalDocuments []string `yaml:"optional_documents"`
}

// GenerationConfig contains lesson generation settings.
type GenerationConfig struct {
	APIKey      string   `yaml:"-"` // env-only, never in YAML
	Model       string   `yaml:"model"`
	MaxTokens   int      `yaml:"max_tokens"`
	MaxAttempts int      `yaml:"max_attempts"`
	BackoffBase Duration `yaml:"backoff_base"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("LESSONGATE_CONFIG_PATH", "config/lessongate.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadKBConfig loads only the knowledge base section. It skips
// validation so CLI commands work without generation credentials.
func LoadKBConfig() (KBConfig, error) {
	cfg, err := loadWithoutValidation()
	if err != nil {
		return KBConfig{}, err
	}
	return cfg.KB, nil
}

// LoadDatabaseConfig loads only the database section. It skips
// validation so CLI commands work without generation credentials.
func LoadDatabaseConfig() (DatabaseConfig, error) {
	cfg, err := loadWithoutValidation()
	if err != nil {
		return DatabaseConfig{}, err
	}
	return cfg.Database, nil
}

func loadWithoutValidation() (*Config, error) {
	cfg := newDefaults()
	configPath := getEnv("LESSONGATE_CONFIG_PATH", "config/lessongate.yaml")
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(120 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/lessongate.db",
		},
		KB: KBConfig{
			Path: "kb",
		},
		Generation: GenerationConfig{
			Model:       "gpt-4o",
			MaxTokens:   8000,
			MaxAttempts: 3,
			BackoffBase: Duration(1 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("LESSONGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LESSONGATE_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("LESSONGATE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("LESSONGATE_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}

	// Database
	if v := os.Getenv("LESSONGATE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Knowledge base
	if v := os.Getenv("LESSONGATE_KB_PATH"); v != "" {
		cfg.KB.Path = v
	}

	// Generation (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("LESSONGATE_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("LESSONGATE_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generation.MaxTokens = n
		}
	}
	if v := os.Getenv("LESSONGATE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generation.MaxAttempts = n
		}
	}
	if v := os.Getenv("LESSONGATE_BACKOFF_BASE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Generation.BackoffBase = Duration(d)
		}
	}

	// Auth
	if v := os.Getenv("LESSONGATE_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Log
	if v := os.Getenv("LESSONGATE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LESSONGATE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks that required configuration values are set.
// In dev mode (LESSONGATE_DEV_MODE=true), API key validation is skipped.
func (c *Config) validate() error {
	if os.Getenv("LESSONGATE_DEV_MODE") == "true" {
		return nil
	}

	if c.Generation.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
