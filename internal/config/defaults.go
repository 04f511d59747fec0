// Package config loads polish settings from ~/.config/polish over built-in
// defaults.
package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// Keys present in the file override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Provider ProviderConfig `json:"provider" yaml:"provider"`
	Document DocumentConfig `json:"document" yaml:"document"`
	Stream   StreamConfig   `json:"stream" yaml:"stream"`
	UI       UIConfig       `json:"ui" yaml:"ui"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Safety   SafetyConfig   `json:"safety" yaml:"safety"`
}

type ProviderConfig struct {
	Name    string `json:"name" yaml:"name"`         // Default: "openai"
	Model   string `json:"model" yaml:"model"`       // Default: "gpt-4o-mini"
	BaseURL string `json:"base_url" yaml:"base_url"` // Default: "" (provider default endpoint)

	// APIKeyEnv names the environment variable holding the key.
	// Empty selects OPENAI_API_KEY or GEMINI_API_KEY by provider name.
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env"`

	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"` // Default: 120

	// Optional generation parameters; nil leaves the model default.
	Temperature     *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty" yaml:"max_output_tokens,omitempty"`
}

type DocumentConfig struct {
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"` // Default: 5 * 1024 * 1024 (5MB)
}

type StreamConfig struct {
	MaxResponseBytes int64 `json:"max_response_bytes" yaml:"max_response_bytes"` // Default: 1024 * 1024 (1MB)
}

type UIConfig struct {
	TickIntervalMs int    `json:"tick_interval_ms" yaml:"tick_interval_ms"` // Default: 100
	ColorPrimary   string `json:"color_primary" yaml:"color_primary"`       // Default: "63"
	ColorSuccess   string `json:"color_success" yaml:"color_success"`       // Default: "42"
	ColorError     string `json:"color_error" yaml:"color_error"`           // Default: "196"
	ColorMuted     string `json:"color_muted" yaml:"color_muted"`           // Default: "241"
	DiffStyle      string `json:"diff_style" yaml:"diff_style"`             // Default: "dark"
}

type LogConfig struct {
	Path  string `json:"path" yaml:"path"`   // Default: "" (~/.config/polish/polish.log); "-" logs to stderr
	Level string `json:"level" yaml:"level"` // Default: "info"
}

type SafetyConfig struct {
	RequireCleanWorktree bool `json:"require_clean_worktree" yaml:"require_clean_worktree"` // Default: true
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:           ProviderOpenAI,
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 120,
		},
		Document: DocumentConfig{
			MaxFileSize: 5 * 1024 * 1024,
		},
		Stream: StreamConfig{
			MaxResponseBytes: 1024 * 1024,
		},
		UI: UIConfig{
			TickIntervalMs: 100,
			ColorPrimary:   "63",
			ColorSuccess:   "42",
			ColorError:     "196",
			ColorMuted:     "241",
			DiffStyle:      "dark",
		},
		Log: LogConfig{
			Level: "info",
		},
		Safety: SafetyConfig{
			RequireCleanWorktree: true,
		},
	}
}

// Supported provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// KeyEnv returns the environment variable that holds the API key.
func (p ProviderConfig) KeyEnv() string {
	if p.APIKeyEnv != "" {
		return p.APIKeyEnv
	}
	if p.Name == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}
