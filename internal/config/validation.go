package config

import (
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config validation failed")

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	// Provider
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, `provider.name must be "openai" or "gemini"`)
	}
	if strings.TrimSpace(c.Provider.Model) == "" {
		errs = append(errs, "provider.model must not be empty")
	}
	if c.Provider.TimeoutSeconds < 1 {
		errs = append(errs, "provider.timeout_seconds must be >= 1")
	}
	if t := c.Provider.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, "provider.temperature must be between 0 and 2")
	}
	if m := c.Provider.MaxOutputTokens; m != nil && *m < 1 {
		errs = append(errs, "provider.max_output_tokens must be >= 1")
	}

	// Limits
	if c.Document.MaxFileSize < 1 {
		errs = append(errs, "document.max_file_size must be >= 1")
	}
	if c.Stream.MaxResponseBytes < 1 {
		errs = append(errs, "stream.max_response_bytes must be >= 1")
	}

	// UI
	if c.UI.TickIntervalMs < 1 {
		errs = append(errs, "ui.tick_interval_ms must be >= 1")
	}
	switch c.UI.DiffStyle {
	case "dark", "light", "notty":
	default:
		errs = append(errs, `ui.diff_style must be "dark", "light" or "notty"`)
	}

	// Log
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil || c.Log.Level == "" {
		errs = append(errs, "log.level must be a valid level (debug, info, warn, error)")
	}

	if len(errs) > 0 {
		return errors.Errorf("%w: %v", ErrInvalid, errs)
	}

	return nil
}
