package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models staffline.yml.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
	Status  StatusConfig  `yaml:"status"`
	Sandbox SandboxConfig `yaml:"sandbox"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
	RateBurst int           `yaml:"rate_burst"`
	UserAgent string        `yaml:"user_agent"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StatusConfig struct {
	// RollbackOnFailure restores the previous status when an update request fails.
	RollbackOnFailure *bool `yaml:"rollback_on_failure"`
}

// Rollback reports the effective rollback policy; unset means true.
func (s StatusConfig) Rollback() bool {
	return s.RollbackOnFailure == nil || *s.RollbackOnFailure
}

type SandboxConfig struct {
	Addr      string `yaml:"addr"`
	BasePath  string `yaml:"base_path"`
	JWTSecret string `yaml:"jwt_secret"`
	DevAuth   bool   `yaml:"dev_auth"`
	SeedFile  string `yaml:"seed_file"`
	Workspace string `yaml:"workspace"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config.api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config.api.base_url must be an absolute URL")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("config.api.timeout must not be negative")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("config.api.rate_limit must not be negative")
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		return fmt.Errorf("config.api.rate_burst must be at least 1 when rate_limit is set")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	if c.Sandbox.BasePath != "" && !strings.HasPrefix(c.Sandbox.BasePath, "/") {
		return fmt.Errorf("config.sandbox.base_path must start with /")
	}
	if !c.Sandbox.DevAuth && c.Sandbox.JWTSecret == "" && c.Sandbox.Addr != "" {
		return fmt.Errorf("config.sandbox.jwt_secret is required unless dev_auth is enabled")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "staffline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config template: %v", err))
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing values
// fall back to the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `api:
  base_url: http://127.0.0.1:8080/v0
  token: ""
  timeout: 15s
  rate_limit: 10
  rate_burst: 5
  user_agent: staffline-cli

log:
  level: info
  format: text

status:
  rollback_on_failure: true

sandbox:
  addr: 127.0.0.1:8080
  base_path: /v0
  jwt_secret: ""
  dev_auth: true
  seed_file: ""
  workspace: .
`
