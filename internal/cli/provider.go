package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-scorer/internal/ai"
	"github.com/spigell/job-scorer/internal/ai/gemini"
	"github.com/spigell/job-scorer/internal/ai/openai"
	"github.com/spigell/job-scorer/internal/logger"
	"github.com/spigell/job-scorer/internal/secrets"
)

// generatorFactory builds the provider client. Tests swap it for a stub.
type generatorFactory func(ctx context.Context, provider ai.Provider, cfg *Config, logger *zap.Logger) (ai.Generator, error)

// buildGenerator validates the provider name and constructs its client.
// Credentials are resolved here, before any request is made.
func (s *session) buildGenerator(ctx context.Context, name string, cfg *Config) (ai.Generator, error) {
	provider, err := ai.ParseProvider(name)
	if err != nil {
		return nil, err
	}

	return s.newGenerator(ctx, provider, cfg, s.logger)
}

func newGenerator(ctx context.Context, provider ai.Provider, cfg *Config, lg *zap.Logger) (ai.Generator, error) {
	switch provider {
	case ai.ProviderGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "GEMINI_API_KEY",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, ai.NewConfigError(err.Error(), nil)
		}

		genLogger := logger.WithFields(
			logger.WithCommonFields(lg, string(provider), cfg.Gemini.Model),
			zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
		)

		return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)

	case ai.ProviderOpenAI:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "OPENAI_API_KEY",
			Value: cfg.OpenAI.APIKey,
			File:  cfg.OpenAI.APIKeyFile,
		})
		if err != nil {
			return nil, ai.NewConfigError(err.Error(), nil)
		}

		genLogger := logger.WithCommonFields(lg, string(provider), cfg.OpenAI.Model)

		return openai.NewGenerator(apiKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, genLogger)

	default:
		return nil, ai.NewConfigError(fmt.Sprintf("Unknown provider: %s", provider), nil)
	}
}
