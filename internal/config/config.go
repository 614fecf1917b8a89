package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the root configuration for funcagent.
type Config struct {
	General   GeneralConfig             `json:"general"`
	Providers map[string]ProviderConfig `json:"providers"`
	RateLimit RateLimitConfig           `json:"rateLimit"`
	Tools     ToolsConfig               `json:"tools"`
	Journal   JournalConfig             `json:"journal"`
}

type GeneralConfig struct {
	LogLevel        string   `json:"logLevel"`
	MaxSteps        int      `json:"maxSteps"`
	DefaultProvider string   `json:"defaultProvider"`
	FailoverChain   []string `json:"failoverChain,omitempty"` // provider failover order
	SystemPrompt    string   `json:"systemPrompt,omitempty"`  // replaces the built-in system prompt for ad-hoc runs
	Temperature     float64  `json:"temperature"`
	MaxTokens       int      `json:"maxTokens"`
}

type ProviderConfig struct {
	Enabled        bool   `json:"enabled"`
	Type           string `json:"type"` // "openai" | "ollama"
	APIBase        string `json:"apiBase,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	DefaultModel   string `json:"defaultModel,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// RateLimitConfig throttles model calls. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute float64 `json:"requestsPerMinute"`
	Burst             int     `json:"burst"`
}

type ToolsConfig struct {
	Fetch       FetchToolConfig `json:"fetch"`
	DeniedTools []string        `json:"deniedTools,omitempty"` // never offered to the model
}

type FetchToolConfig struct {
	Enabled        bool `json:"enabled"`
	TimeoutSeconds int  `json:"timeoutSeconds"`
}

type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

// DefaultConfigDir returns the default config directory (~/.funcagent).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".funcagent"
	}
	return filepath.Join(home, ".funcagent")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// LoadDotEnv loads .env from the working directory and from the config
// directory. Variables already set in the environment win. Missing files are
// not an error.
func LoadDotEnv() error {
	for _, path := range []string{".env", filepath.Join(DefaultConfigDir(), ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Defaults when the file does not
// exist. Environment variables are expanded in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	data, err := json.Marshal(Defaults())
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// parse expands environment variables in data and decodes it over Defaults.
func parse(data []byte) (*Config, error) {
	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Journal.DBPath = ExpandPath(cfg.Journal.DBPath)
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// IsUnresolved reports whether s still holds a ${VAR} reference, meaning the
// variable was not set when the config was loaded.
func IsUnresolved(s string) bool {
	return envVarPattern.MatchString(s)
}

func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.MaxSteps < 1 || cfg.General.MaxSteps > 200 {
		errs = append(errs, "general.maxSteps must be between 1 and 200")
	}
	if cfg.General.Temperature < 0 || cfg.General.Temperature > 2 {
		errs = append(errs, "general.temperature must be between 0 and 2")
	}
	if cfg.General.MaxTokens < 1 {
		errs = append(errs, "general.maxTokens must be >= 1")
	}
	if _, ok := cfg.Providers[cfg.General.DefaultProvider]; !ok {
		errs = append(errs, fmt.Sprintf("general.defaultProvider references unknown provider: %s", cfg.General.DefaultProvider))
	}

	// Validate failover chain references exist in providers.
	for _, provName := range cfg.General.FailoverChain {
		if _, ok := cfg.Providers[provName]; !ok {
			errs = append(errs, fmt.Sprintf("general.failoverChain references unknown provider: %s", provName))
		}
	}

	for name, pc := range cfg.Providers {
		switch pc.Type {
		case "openai":
			if pc.Enabled && pc.APIBase == "" {
				errs = append(errs, fmt.Sprintf("providers.%s: apiBase is required", name))
			}
		case "ollama":
			// apiBase defaults to the local daemon
		default:
			errs = append(errs, fmt.Sprintf("providers.%s: type must be one of: openai, ollama", name))
		}
		if pc.TimeoutSeconds < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s: timeoutSeconds must be >= 0", name))
		}
	}

	if cfg.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, "rateLimit.requestsPerMinute must be >= 0")
	}
	if cfg.RateLimit.Burst < 0 {
		errs = append(errs, "rateLimit.burst must be >= 0")
	}
	if cfg.Tools.Fetch.Enabled && cfg.Tools.Fetch.TimeoutSeconds < 1 {
		errs = append(errs, "tools.fetch.timeoutSeconds must be >= 1")
	}
	if cfg.Journal.Enabled && cfg.Journal.DBPath == "" {
		errs = append(errs, "journal.dbPath is required when the journal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
