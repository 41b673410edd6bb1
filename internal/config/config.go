// Package config loads and validates the service configuration from a
// single YAML file. Provider API keys never live in the file, only the env
// var names that hold them.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full memberwise configuration.
type Config struct {
	Server          ServerConfig              `yaml:"server"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	DefaultProvider string                    `yaml:"default_provider"`
	Projects        []ProjectConfig           `yaml:"projects"`
	Guard           GuardConfig               `yaml:"guard"`
	Records         RecordsConfig             `yaml:"records"`
	Audit           AuditConfig               `yaml:"audit"`
	Telemetry       TelemetryConfig           `yaml:"telemetry"`
}

// RecordsConfig points at the YAML seed file for the in-memory record
// store.
type RecordsConfig struct {
	File string `yaml:"file"`
}

type ServerConfig struct {
	Addr                string `yaml:"addr"`                   // HTTP listen address, e.g. ":8080"
	MaxRequestBodyBytes int64  `yaml:"max_request_body_bytes"` // 413 above this
}

type ProviderConfig struct {
	Type                 string `yaml:"type"`        // "openai" or "fake"
	BaseURL              string `yaml:"base_url"`    // e.g. "https://api.openai.com/v1"
	APIKeyEnv            string `yaml:"api_key_env"` // e.g. "OPENAI_API_KEY"
	Model                string `yaml:"model"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	AllowPrivateNetworks bool   `yaml:"allow_private_networks"`
}

type ProjectConfig struct {
	ID       string   `yaml:"id"`
	Provider string   `yaml:"provider"` // provider name from Providers map
	APIKeys  []string `yaml:"api_keys"`
}

type GuardConfig struct {
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	MaxQuestionChars  int             `yaml:"max_question_chars"`
	MaxSummaryChars   int             `yaml:"max_summary_chars"`
	MaxReasoningChars int             `yaml:"max_reasoning_chars"`
	Grounding         GroundingConfig `yaml:"grounding"`
}

type RateLimitConfig struct {
	PerMinute     int `yaml:"per_minute"`
	PerHour       int `yaml:"per_hour"`
	MaxConcurrent int `yaml:"max_concurrent"`
}

type GroundingConfig struct {
	Threshold      float64 `yaml:"threshold"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

type AuditConfig struct {
	QueueSize int          `yaml:"queue_size"`
	Workers   int          `yaml:"workers"`
	Sinks     []SinkConfig `yaml:"sinks"`
}

type SinkConfig struct {
	Type string `yaml:"type"` // "stdout" or "file_jsonl"
	Path string `yaml:"path"` // file_jsonl only
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Protocol    string  `yaml:"protocol"` // "grpc" or "http"
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Load reads configuration from a YAML file. A missing file yields the
// default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{
		Providers: map[string]ProviderConfig{},
		Projects:  []ProjectConfig{},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxRequestBodyBytes <= 0 {
		cfg.Server.MaxRequestBodyBytes = 64 * 1024
	}

	// A single configured provider becomes the default.
	if cfg.DefaultProvider == "" && len(cfg.Providers) == 1 {
		for name := range cfg.Providers {
			cfg.DefaultProvider = name
		}
	}

	if cfg.Guard.Grounding.Threshold == 0 {
		cfg.Guard.Grounding.Threshold = 0.8
	}
	if cfg.Guard.Grounding.TimeoutSeconds <= 0 {
		cfg.Guard.Grounding.TimeoutSeconds = 15
	}

	if cfg.Audit.QueueSize <= 0 {
		cfg.Audit.QueueSize = 1000
	}
	if cfg.Audit.Workers <= 0 {
		cfg.Audit.Workers = 1
	}

	if cfg.Telemetry.SampleRatio <= 0 {
		cfg.Telemetry.SampleRatio = 1
	}
}
