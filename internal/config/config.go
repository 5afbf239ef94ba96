package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultAttemptTimeoutSeconds = 30

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Chat   ChatConfig   `yaml:"chat"`
	Store  StoreConfig  `yaml:"store"`
	Blog   BlogConfig   `yaml:"blog"`
	Mail   MailConfig   `yaml:"mail"`
	Admin  AdminConfig  `yaml:"admin"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ChatConfig configures the upstream completion provider and the ordered
// candidate model list. List order is priority order: the first model is
// always tried first, on every request.
type ChatConfig struct {
	APIKey                string   `yaml:"api_key"`
	BaseURL               string   `yaml:"base_url"`
	Referer               string   `yaml:"referer"`
	Title                 string   `yaml:"title"`
	SystemPrompt          string   `yaml:"system_prompt"`
	MaxTokens             int      `yaml:"max_tokens"`
	AttemptTimeoutSeconds int      `yaml:"attempt_timeout_seconds"`
	Models                []string `yaml:"models"`
}

// AttemptTimeout returns the per-candidate request timeout.
func (c ChatConfig) AttemptTimeout() time.Duration {
	seconds := c.AttemptTimeoutSeconds
	if seconds <= 0 {
		seconds = defaultAttemptTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// StoreConfig locates the SQLite database file.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// BlogConfig locates the markdown post directory.
type BlogConfig struct {
	Dir string `yaml:"dir"`
}

// MailConfig configures outbound SMTP delivery. All fields optional; when
// host or from is empty, mail sending is disabled.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// AdminConfig guards the record-listing endpoints. With an empty token the
// admin routes are not registered at all.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// Load reads YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if err := c.Chat.validate(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path must be provided")
	}
	if strings.TrimSpace(c.Blog.Dir) == "" {
		return fmt.Errorf("blog.dir must be provided")
	}

	return c.Mail.validate()
}

func (c ChatConfig) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("chat.api_key must be provided")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("chat.base_url must be provided")
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		return fmt.Errorf("chat.system_prompt must be provided")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("chat.max_tokens must be positive, got %d", c.MaxTokens)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("chat.models must list at least one candidate model")
	}
	for _, model := range c.Models {
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("chat.models must not contain empty entries")
		}
	}
	return nil
}

func (c MailConfig) validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return nil
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("mail.port must be a valid TCP port, got %d", c.Port)
	}
	if strings.TrimSpace(c.From) == "" {
		return fmt.Errorf("mail.from must be provided when mail.host is set")
	}
	return nil
}
