package main

import (
	"context"
	"time"

	"github.com/Cyclone1070/polish/internal/config"
	"github.com/Cyclone1070/polish/internal/provider/gemini"
	provider "github.com/Cyclone1070/polish/internal/provider/models"
	"github.com/Cyclone1070/polish/internal/provider/openai"
	"gitlab.com/tozd/go/errors"
)

// newProvider builds the completion provider named in cfg.
func newProvider(ctx context.Context, cfg config.ProviderConfig, apiKey string) (provider.Provider, error) {
	switch cfg.Name {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, apiKey, cfg.BaseURL)
		if err != nil {
			return nil, errors.Errorf("creating Gemini client: %w", err)
		}
		return gemini.New(client, cfg.Model), nil
	case config.ProviderOpenAI:
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		return openai.New(openai.NewClient(apiKey, cfg.BaseURL, timeout), cfg.Model), nil
	default:
		return nil, errors.Errorf("unknown provider %q", cfg.Name)
	}
}

// apiKey reads the provider's key from the environment.
func apiKey(cfg config.ProviderConfig, getenv func(string) string) (string, error) {
	env := cfg.KeyEnv()
	key := getenv(env)
	if key == "" {
		return "", errors.Errorf("%s is not set: %w", env, provider.ErrMissingAPIKey)
	}
	return key, nil
}
