// Package config handles Gupshup configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/gupshup/config.yaml, /etc/gupshup/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "gupshup", "config.yaml"))
	}

	paths = append(paths, "/etc/gupshup/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
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

// Config holds all Gupshup configuration.
type Config struct {
	Listen   ListenConfig  `yaml:"listen"`
	Ollama   OllamaConfig  `yaml:"ollama"`
	Memory   MemoryConfig  `yaml:"memory"`
	Persona  PersonaConfig `yaml:"persona"`
	Usage    UsageConfig   `yaml:"usage"`
	LogLevel string        `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// OllamaConfig defines the language-model backend connection.
type OllamaConfig struct {
	// BaseURL is the Ollama API base address (default: http://localhost:11434).
	BaseURL string `yaml:"base_url"`
	// Model is the model name sent with completion requests.
	Model string `yaml:"model"`
	// TimeoutSec bounds each completion request (default 30).
	TimeoutSec int `yaml:"timeout_sec"`
	// ProbeTimeoutSec bounds each reachability probe (default 5).
	ProbeTimeoutSec int `yaml:"probe_timeout_sec"`
	// ProbeTTLSec is how long a probe result is trusted before the next
	// call re-probes (default 5).
	ProbeTTLSec int `yaml:"probe_ttl_sec"`
}

// MemoryConfig defines conversation memory bounds.
type MemoryConfig struct {
	// MaxHistory is the number of turns retained per conversation.
	MaxHistory int `yaml:"max_history"`
	// ContextWindow is the number of recent turns included in prompts.
	ContextWindow int `yaml:"context_window"`
	// TopicLimit caps how many extracted topics a context summary carries.
	TopicLimit int `yaml:"topic_limit"`
}

// PersonaConfig defines personality settings.
type PersonaConfig struct {
	// DefaultTone is used when a request names no tone (default: friendly).
	DefaultTone string `yaml:"default_tone"`
	// File optionally overrides the built-in system instructions with the
	// contents of a markdown persona file, applied to every tone.
	File string `yaml:"file"`
}

// UsageConfig defines interaction usage recording.
type UsageConfig struct {
	// DBPath is the SQLite file for usage records. Empty disables recording.
	DBPath string `yaml:"db_path"`
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

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Ollama: OllamaConfig{
			BaseURL:         "http://localhost:11434",
			Model:           "llama3.2",
			TimeoutSec:      30,
			ProbeTimeoutSec: 5,
			ProbeTTLSec:     5,
		},
		Memory: MemoryConfig{
			MaxHistory:    20,
			ContextWindow: 5,
			TopicLimit:    5,
		},
		Persona: PersonaConfig{
			DefaultTone: "friendly",
		},
	}
}
