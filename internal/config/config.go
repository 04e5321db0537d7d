// Package config handles emissary configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/emissary/config.yaml, /etc/emissary/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "emissary", "config.yaml"))
	}

	paths = append(paths, "/etc/emissary/config.yaml")
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

// Config holds all emissary configuration.
type Config struct {
	Listen      ListenConfig   `yaml:"listen"`
	OpenAI      OpenAIConfig   `yaml:"openai"`
	Pushover    PushoverConfig `yaml:"pushover"`
	Persona     PersonaConfig  `yaml:"persona"`
	Chat        ChatConfig     `yaml:"chat"`
	CORSOrigins []string       `yaml:"cors_origins"`
	LogLevel    string         `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// OpenAIConfig defines the chat-completion provider settings.
// APIKey is the only mandatory value in the whole configuration.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"` // default https://api.openai.com
	Model       string  `yaml:"model"`    // default gpt-4o-mini
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// PushoverConfig defines the optional push-notification credentials.
// Notifications are silently disabled unless both values are set.
type PushoverConfig struct {
	Token string `yaml:"token"`
	User  string `yaml:"user"`
}

// PersonaConfig defines where the persona documents come from.
// Inline values take precedence over files; missing files degrade to
// fallbacks rather than failing startup.
type PersonaConfig struct {
	Name            string `yaml:"name"`
	Summary         string `yaml:"summary"`      // inline override
	SummaryFile     string `yaml:"summary_file"` // default me/summary.txt
	Resume          string `yaml:"resume"`       // inline override
	ResumeFile      string `yaml:"resume_file"`  // .docx or plain text
	WorkHistoryFile string `yaml:"work_history_file"`
}

// ChatConfig tunes the conversation engine.
type ChatConfig struct {
	// MaxIterations caps model calls per turn so a tool-calling loop
	// cannot spin forever. Zero means the default of 10.
	MaxIterations int `yaml:"max_iterations"`
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
		OpenAI: OpenAIConfig{
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   500,
		},
		Persona: PersonaConfig{
			SummaryFile:     "me/summary.txt",
			ResumeFile:      "me/resume.docx",
			WorkHistoryFile: "me/work_experience.txt",
		},
		Chat: ChatConfig{MaxIterations: 10},
		CORSOrigins: []string{
			"http://localhost:4321",
			"http://localhost:3000",
			"http://localhost:5173",
		},
	}
}
