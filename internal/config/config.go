package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ProviderConfig holds per-provider connection settings.
type ProviderConfig struct {
	// Model is the model identifier sent to the provider API
	Model string `json:"model,omitempty"`

	// BaseURL overrides the provider's default API endpoint
	BaseURL string `json:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	// Defaults to the provider's conventional variable (e.g. OPENAI_API_KEY).
	APIKeyEnv string `json:"api_key_env,omitempty"`
}

// Config holds application configuration.
type Config struct {
	// Providers maps provider keys to their settings
	Providers map[string]ProviderConfig `json:"providers,omitempty"`

	// TestProviders is the default provider set for multi-provider test runs
	TestProviders []string `json:"test_providers,omitempty"`

	// GeneratorProvider is the provider used for generation and optimization
	GeneratorProvider string `json:"generator_provider,omitempty"`

	// RequestTimeoutSeconds bounds each outbound provider call
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// Temperature is the sampling temperature for test invocations
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the output token limit for test invocations
	MaxTokens int `json:"max_tokens,omitempty"`

	// RateLimitPerMinute caps outbound calls per provider. 0 disables limiting.
	RateLimitPerMinute int `json:"rate_limit_per_minute,omitempty"`

	// Categories extends the built-in category list
	Categories []string `json:"categories,omitempty"`

	// AllowCustomCategories accepts categories outside the known list
	AllowCustomCategories bool `json:"allow_custom_categories,omitempty"`

	// ValidateVariables rejects writes whose declared variables do not match
	// the {placeholders} present in the body. Off by default: mismatches are
	// reported but accepted.
	ValidateVariables bool `json:"validate_variables,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized. 0 means sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TestProviders:         []string{"anthropic", "openai", "deepseek", "groq", "gemini"},
		GeneratorProvider:     "anthropic",
		RequestTimeoutSeconds: 60,
		Temperature:           0.7,
		MaxTokens:             2000,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.promptforge.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and
// deduplicated, except TestProviders where the overlay replaces the base
// (order matters for tie-breaking in test analysis).
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.GeneratorProvider = overlay.GeneratorProvider
	if result.GeneratorProvider == "" {
		result.GeneratorProvider = base.GeneratorProvider
	}

	result.RequestTimeoutSeconds = overlay.RequestTimeoutSeconds
	if result.RequestTimeoutSeconds == 0 {
		result.RequestTimeoutSeconds = base.RequestTimeoutSeconds
	}

	result.Temperature = overlay.Temperature
	if result.Temperature == 0 {
		result.Temperature = base.Temperature
	}

	result.MaxTokens = overlay.MaxTokens
	if result.MaxTokens == 0 {
		result.MaxTokens = base.MaxTokens
	}

	result.RateLimitPerMinute = overlay.RateLimitPerMinute
	if result.RateLimitPerMinute == 0 {
		result.RateLimitPerMinute = base.RateLimitPerMinute
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.AllowCustomCategories = base.AllowCustomCategories || overlay.AllowCustomCategories
	result.ValidateVariables = base.ValidateVariables || overlay.ValidateVariables

	// Provider set: overlay replaces wholesale when present
	result.TestProviders = overlay.TestProviders
	if len(result.TestProviders) == 0 {
		result.TestProviders = base.TestProviders
	}

	// Provider settings: merge maps, overlay entries win
	if len(base.Providers) > 0 || len(overlay.Providers) > 0 {
		result.Providers = make(map[string]ProviderConfig, len(base.Providers)+len(overlay.Providers))
		for name, pc := range base.Providers {
			result.Providers[name] = pc
		}
		for name, pc := range overlay.Providers {
			result.Providers[name] = pc
		}
	}

	// Arrays: merge and deduplicate
	result.Categories = mergeStringSlice(base.Categories, overlay.Categories)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// AllCategories returns the built-in categories plus any configured extras.
func (c *Config) AllCategories(builtin []string) []string {
	return mergeStringSlice(builtin, c.Categories)
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
