package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	State   StateConfig   `yaml:"state"`
	Session SessionConfig `yaml:"session"`
	Audit   AuditConfig   `yaml:"audit"`
	Auth    AuthConfig    `yaml:"auth"`
	Mock    MockConfig    `yaml:"mock"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StateConfig struct {
	Path string `yaml:"path"`
	// EncryptionKey, when set, seals the persisted token at rest.
	EncryptionKey string `yaml:"encryption_key"`
}

type SessionConfig struct {
	TTL              time.Duration `yaml:"ttl"`
	WarningThreshold time.Duration `yaml:"warning_threshold"`
}

type AuditConfig struct {
	MaxEntries    int           `yaml:"max_entries"`
	ToastDuration time.Duration `yaml:"toast_duration"`
	PendingWindow time.Duration `yaml:"pending_window"`
}

type AuthConfig struct {
	// DemoLogins enables the built-in demo credential table. These bypass
	// the backend entirely and must stay off anywhere real auth matters.
	DemoLogins bool `yaml:"demo_logins"`
}

type MockConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	LoginRate    int           `yaml:"login_rate"`
	LoginWindow  time.Duration `yaml:"login_window"`
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8090",
			Timeout: 10 * time.Second,
		},
		State: StateConfig{
			Path: defaultStatePath(),
		},
		Session: SessionConfig{
			TTL:              24 * time.Hour,
			WarningThreshold: time.Hour,
		},
		Audit: AuditConfig{
			MaxEntries:    100,
			ToastDuration: 5 * time.Second,
			PendingWindow: 30 * time.Second,
		},
		Auth: AuthConfig{
			DemoLogins: true,
		},
		Mock: MockConfig{
			Host:         "0.0.0.0",
			Port:         8090,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			LoginRate:    10,
			LoginWindow:  time.Minute,
		},
	}
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mlconsole.db"
	}
	return filepath.Join(home, ".mlconsole", "state.db")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MLCONSOLE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("MLCONSOLE_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("MLCONSOLE_ENCRYPTION_KEY"); v != "" {
		cfg.State.EncryptionKey = v
	}
	if v := os.Getenv("MLCONSOLE_MOCK_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Mock.Port = port
		}
	}
	if v := os.Getenv("MLCONSOLE_MOCK_HOST"); v != "" {
		cfg.Mock.Host = v
	}
}

// Validate checks the configuration for values that would break the stores
// at runtime rather than failing fast here.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.State.Path == "" {
		return fmt.Errorf("state.path must not be empty")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.WarningThreshold <= 0 || c.Session.WarningThreshold >= c.Session.TTL {
		return fmt.Errorf("session.warning_threshold must be positive and below session.ttl")
	}
	if c.Audit.MaxEntries <= 0 {
		return fmt.Errorf("audit.max_entries must be positive")
	}
	if c.Audit.PendingWindow <= 0 {
		return fmt.Errorf("audit.pending_window must be positive")
	}
	if c.Mock.Port < 1 || c.Mock.Port > 65535 {
		return fmt.Errorf("mock.port must be in 1..65535")
	}
	if c.Mock.ReadTimeout <= 0 || c.Mock.WriteTimeout <= 0 {
		return fmt.Errorf("mock timeouts must be positive")
	}
	if c.Mock.LoginRate < 0 {
		return fmt.Errorf("mock.login_rate must not be negative")
	}
	if c.Mock.LoginWindow <= 0 {
		return fmt.Errorf("mock.login_window must be positive")
	}
	return nil
}

func (c *Config) MockAddr() string {
	return fmt.Sprintf("%s:%d", c.Mock.Host, c.Mock.Port)
}
