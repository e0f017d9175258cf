// Package config handles Allie configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from --config) is checked first.
// Then: ./config.yaml, ~/.config/allie/config.yaml, /etc/allie/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "allie", "config.yaml"))
	}

	paths = append(paths, "/etc/allie/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Allie configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	DataDir   string          `yaml:"data_dir"`
	Logging   LoggingConfig   `yaml:"logging"`
	Models    ModelsConfig    `yaml:"models"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Identity  IdentityConfig  `yaml:"identity"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json

	// File, when set, receives log output through a rotating writer
	// in addition to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// ModelsConfig selects the completion models used by each stage.
type ModelsConfig struct {
	Default   string `yaml:"default"`
	OllamaURL string `yaml:"ollama_url"`

	// Classifier and Extraction override Default for their stage.
	Classifier string `yaml:"classifier"`
	Extraction string `yaml:"extraction"`

	// Routes maps a model name to a provider (ollama, anthropic, gemini).
	Routes map[string]string `yaml:"routes"`
}

// ClassifierModel returns the model used for intent classification.
func (m ModelsConfig) ClassifierModel() string {
	if m.Classifier != "" {
		return m.Classifier
	}
	return m.Default
}

// ExtractionModel returns the model used for entity extraction.
func (m ModelsConfig) ExtractionModel() string {
	if m.Extraction != "" {
		return m.Extraction
	}
	return m.Default
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether an API key is set.
func (a AnthropicConfig) Configured() bool {
	return a.APIKey != ""
}

// GeminiConfig defines Google Gemini API settings.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether an API key is set.
func (g GeminiConfig) Configured() bool {
	return g.APIKey != ""
}

// Unresolved identity policies.
const (
	UnresolvedDegrade = "degrade"
	UnresolvedReject  = "reject"
)

// IdentityConfig controls how missing user/family identity is handled.
type IdentityConfig struct {
	FallbackFamilyID string `yaml:"fallback_family_id"`
	FallbackUserID   string `yaml:"fallback_user_id"`
	OnUnresolved     string `yaml:"on_unresolved"` // degrade or reject
}

// DispatchConfig tunes the action dispatcher.
type DispatchConfig struct {
	LLMTimeout  time.Duration `yaml:"llm_timeout"`
	GuardWindow time.Duration `yaml:"guard_window"`
	AuditSize   int           `yaml:"audit_size"`
}

// MQTTConfig configures the optional notification fan-out.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
}

// Configured reports whether a broker URL is set.
func (m MQTTConfig) Configured() bool {
	return m.Broker != ""
}

// AuthConfig holds the bearer token verification secret.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// RateLimitConfig bounds dispatch requests per family.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 8080},
		DataDir: "./data",
		Logging: LoggingConfig{Level: "info", Format: "text", MaxSizeMB: 50, MaxBackups: 3},
		Models: ModelsConfig{
			Default:   "qwen3:4b",
			OllamaURL: "http://localhost:11434",
		},
		Identity: IdentityConfig{
			FallbackFamilyID: "default-family",
			FallbackUserID:   "default-user",
			OnUnresolved:     UnresolvedDegrade,
		},
		Dispatch: DispatchConfig{
			LLMTimeout:  15 * time.Second,
			GuardWindow: 5 * time.Second,
			AuditSize:   1000,
		},
		MQTT:      MQTTConfig{TopicPrefix: "allie", ClientID: "allie"},
		RateLimit: RateLimitConfig{PerMinute: 30, Burst: 5},
	}
}

// applyDefaults fills zero values that YAML may have cleared.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Listen.Port == 0 {
		c.Listen.Port = d.Listen.Port
	}
	if c.Dispatch.LLMTimeout <= 0 {
		c.Dispatch.LLMTimeout = d.Dispatch.LLMTimeout
	}
	if c.Dispatch.GuardWindow <= 0 {
		c.Dispatch.GuardWindow = d.Dispatch.GuardWindow
	}
	if c.Dispatch.AuditSize <= 0 {
		c.Dispatch.AuditSize = d.Dispatch.AuditSize
	}
	if c.Identity.OnUnresolved == "" {
		c.Identity.OnUnresolved = UnresolvedDegrade
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = d.MQTT.TopicPrefix
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = d.MQTT.ClientID
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range", c.Listen.Port)
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q (valid: text, json)", c.Logging.Format)
	}
	switch c.Identity.OnUnresolved {
	case UnresolvedDegrade, UnresolvedReject:
	default:
		return fmt.Errorf("identity.on_unresolved %q (valid: degrade, reject)", c.Identity.OnUnresolved)
	}
	if c.Models.Default == "" {
		return fmt.Errorf("models.default is required")
	}
	for model, provider := range c.Models.Routes {
		switch provider {
		case "ollama", "anthropic", "gemini":
		default:
			return fmt.Errorf("models.routes[%s]: unknown provider %q", model, provider)
		}
	}
	return nil
}
