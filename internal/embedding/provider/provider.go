package provider

import (
	"context"
	"fmt"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/pmadusud/salesagent/internal/azureauth"
	"github.com/pmadusud/salesagent/internal/config"
	"github.com/pmadusud/salesagent/internal/embedding"
	"github.com/pmadusud/salesagent/internal/embedding/bedrock"
	"github.com/pmadusud/salesagent/internal/embedding/gemini"
	"github.com/pmadusud/salesagent/internal/embedding/inference"
	"github.com/pmadusud/salesagent/internal/embedding/openai"
	"github.com/pmadusud/salesagent/internal/types"
)

// New builds the embedding client selected by EMBEDDING_PROVIDER, wrapped with the configured rate limit
func New(ctx context.Context, cfg *types.Config) (embedding.Client, error) {
	client, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return embedding.NewRateLimitedClient(client, cfg.EmbeddingRateLimit, cfg.EmbeddingRateBurst), nil
}

func newProvider(ctx context.Context, cfg *types.Config) (embedding.Client, error) {
	switch cfg.EmbeddingProvider {
	case "", config.ProviderAzureInference:
		opts := []inference.Option{
			inference.WithAPIVersion(cfg.AzureAIEmbeddingsAPIVer),
			inference.WithDimensions(cfg.EmbeddingDimensions),
		}
		if cfg.AzureAIEmbeddingsKey == "" {
			cred, err := azureauth.NewCredential(azureauth.KindDefault)
			if err != nil {
				return nil, fmt.Errorf("failed to create Azure credential for embeddings: %w", err)
			}
			log.Printf("AZURE_AI_EMBEDDINGS_KEY not set, using Entra ID token for embeddings")
			opts = append(opts, inference.WithHTTPClient(
				azureauth.NewHTTPClient(ctx, cred, cfg.SearchTimeout, azureauth.CognitiveServicesScope),
			))
		}
		return inference.NewInferenceClient(cfg.AzureAIEmbeddingsEndpoint, cfg.AzureAIEmbeddingsKey, cfg.EmbeddingModel, opts...), nil

	case config.ProviderAzureOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:     cfg.AzureAIEmbeddingsKey,
			BaseURL:    cfg.AzureAIEmbeddingsEndpoint,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
			Azure:      true,
			APIVersion: cfg.AzureOpenAIAPIVersion,
		}), nil

	case config.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		}), nil

	case config.ProviderBedrock:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.BedrockRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return bedrock.GetSharedBedrockClient(awsCfg, cfg.BedrockEmbeddingModel, cfg.EmbeddingDimensions), nil

	case config.ProviderGemini:
		return gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiEmbeddingModel, cfg.EmbeddingDimensions)

	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}
