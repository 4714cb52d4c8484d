// Package completion talks to chat-completion models used to phrase generative answers.
package completion

import (
	"context"
	"fmt"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/models"
)

// Completer produces a model reply for a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// New builds the completer selected by cfg.Provider. Provider "none" returns a nil
// Completer, which selects extractive answers.
func New(cfg *config.CompletionConfig) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(Options{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey(),
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.GetTimeout(),
		})
	default:
		return nil, fmt.Errorf("%w: unknown completion provider %q", models.ErrConfiguration, cfg.Provider)
	}
}
