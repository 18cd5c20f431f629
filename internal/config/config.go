// Package config handles loading and persisting user configuration
// for ochat. Configuration is stored in ~/.ochat/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	dirName  = ".ochat"
	fileName = "config.yaml"

	defaultModel   = "deepseek-r1:14b"
	defaultHost    = "http://localhost:11434"
	defaultTheme   = ThemeDark
	defaultTimeout = 5 * time.Minute

	envKeyModel = "OCHAT_MODEL"
	envKeyHost  = "OLLAMA_HOST"
	envKeyTheme = "OCHAT_THEME"
)

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// DefaultModels is the picker list used when the config names none.
var DefaultModels = []string{
	"deepseek-r1:14b",
	"llama3:8b",
	"gemma:7b",
	"mistral:7b",
	"codellama:7b",
}

// ErrUnknownKey is returned by Set for a key the config does not have.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds the user's configuration.
type Config struct {
	Model        string        `yaml:"model"`
	Models       []string      `yaml:"models,omitempty"`
	Host         string        `yaml:"host"`
	ShowThinking bool          `yaml:"show_thinking"`
	Theme        string        `yaml:"theme"`
	SystemPrompt string        `yaml:"system_prompt,omitempty"`
	SaveDir      string        `yaml:"save_dir,omitempty"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Keys lists the settable keys in display order.
var Keys = []string{"model", "models", "host", "show_thinking", "theme", "system_prompt", "save_dir", "timeout"}

func defaults() *Config {
	return &Config{
		Model:        defaultModel,
		Models:       slices.Clone(DefaultModels),
		Host:         defaultHost,
		ShowThinking: true,
		Theme:        defaultTheme,
		Timeout:      defaultTimeout,
	}
}

// Dir returns the configuration directory path.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

// Path returns the configuration file path.
func Path() string {
	return filepath.Join(Dir(), fileName)
}

// Load reads the configuration from disk and environment variables.
// A missing file yields the defaults; a malformed one is an error.
func Load() (*Config, error) {
	cfg, err := readFile()
	if err != nil {
		return nil, err
	}

	if model := os.Getenv(envKeyModel); model != "" {
		cfg.Model = model
	}
	if host := os.Getenv(envKeyHost); host != "" {
		cfg.Host = normalizeHost(host)
	}
	if theme := os.Getenv(envKeyTheme); theme != "" {
		cfg.Theme = theme
	}

	cfg.fill()
	return cfg, nil
}

// readFile loads the file without environment overrides, so Set never
// persists a value that only came from the environment.
func readFile() (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", Path(), err)
	}
	cfg.fill()
	return cfg, nil
}

// fill restores defaults for values a file left empty.
func (c *Config) fill() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if len(c.Models) == 0 {
		c.Models = slices.Clone(DefaultModels)
	}
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Theme != ThemeLight {
		c.Theme = ThemeDark
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// PickerModels returns the picker list with the current model in it.
func (c *Config) PickerModels() []string {
	if slices.Contains(c.Models, c.Model) {
		return slices.Clone(c.Models)
	}
	return append([]string{c.Model}, c.Models...)
}

// Get returns the printable value of key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "model":
		return c.Model, nil
	case "models":
		return strings.Join(c.Models, ","), nil
	case "host":
		return c.Host, nil
	case "show_thinking":
		return strconv.FormatBool(c.ShowThinking), nil
	case "theme":
		return c.Theme, nil
	case "system_prompt":
		return c.SystemPrompt, nil
	case "save_dir":
		return c.SaveDir, nil
	case "timeout":
		return c.Timeout.String(), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

func (c *Config) set(key, value string) error {
	switch key {
	case "model":
		if value == "" {
			return fmt.Errorf("model must not be empty")
		}
		c.Model = value
	case "models":
		var models []string
		for _, m := range strings.Split(value, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		c.Models = models
	case "host":
		c.Host = normalizeHost(value)
	case "show_thinking":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("show_thinking: %w", err)
		}
		c.ShowThinking = b
	case "theme":
		if value != ThemeDark && value != ThemeLight {
			return fmt.Errorf("theme must be %q or %q", ThemeDark, ThemeLight)
		}
		c.Theme = value
	case "system_prompt":
		c.SystemPrompt = value
	case "save_dir":
		c.SaveDir = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// Set persists a single key to the config file.
func Set(key, value string) error {
	cfg, err := readFile()
	if err != nil {
		return err
	}
	if err := cfg.set(key, value); err != nil {
		return err
	}
	return save(cfg)
}

// save persists the config to disk.
func save(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(Path(), data, 0o600)
}

// normalizeHost accepts the bare host:port form OLLAMA_HOST allows.
func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host != "" && !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host
}
