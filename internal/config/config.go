package config

import (
	"fmt"
	"net/url"
	"strings"

	env "github.com/netflix/go-env"
	"github.com/pmadusud/salesagent/internal/types"
)

// Type alias for Config
type Config = types.Config

// Embedding provider names accepted by EMBEDDING_PROVIDER
const (
	ProviderAzureInference = "azure-inference"
	ProviderAzureOpenAI    = "azure-openai"
	ProviderOpenAI         = "openai"
	ProviderBedrock        = "bedrock"
	ProviderGemini         = "gemini"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	// Search limits
	if config.SearchDefaultLimit < 1 {
		config.SearchDefaultLimit = 3
	}
	if config.SearchDefaultLimit > types.MaxSearchLimit {
		config.SearchDefaultLimit = types.MaxSearchLimit
	}
	if config.SearchNumCandidates < 1 {
		config.SearchNumCandidates = 50
	}
	if config.CleanMaxFieldLength < 1 {
		config.CleanMaxFieldLength = 500
	}

	if config.SearchVectorWeight < 0 || config.SearchVectorWeight > 1 {
		return fmt.Errorf("SEARCH_VECTOR_WEIGHT must be between 0.0 and 1.0")
	}
	if config.SearchFullTextWeight < 0 || config.SearchFullTextWeight > 1 {
		return fmt.Errorf("SEARCH_FULLTEXT_WEIGHT must be between 0.0 and 1.0")
	}
	if config.ResultMaxSizeKB <= 0 {
		return fmt.Errorf("RESULT_MAX_SIZE_KB must be greater than 0")
	}
	if config.SearchTimeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT must be greater than 0")
	}

	if config.MongoDBAtlasURI != "" {
		if err := validateMongoURI(config.MongoDBAtlasURI); err != nil {
			return err
		}
	}

	config.EmbeddingProvider = strings.ToLower(strings.TrimSpace(config.EmbeddingProvider))
	if config.EmbeddingProvider == "" {
		config.EmbeddingProvider = ProviderAzureInference
	}
	switch config.EmbeddingProvider {
	case ProviderAzureInference, ProviderAzureOpenAI, ProviderOpenAI, ProviderBedrock, ProviderGemini:
	default:
		return fmt.Errorf("unsupported EMBEDDING_PROVIDER %q", config.EmbeddingProvider)
	}

	if config.EmbeddingRateLimit < 0 {
		config.EmbeddingRateLimit = 0
	}
	if config.EmbeddingRateBurst < 1 {
		config.EmbeddingRateBurst = 1
	}

	// Agent sampling parameters
	if config.AgentTemperature < 0 || config.AgentTemperature > 2 {
		return fmt.Errorf("AGENT_TEMPERATURE must be between 0.0 and 2.0")
	}
	if config.AgentTopP < 0 || config.AgentTopP > 1 {
		return fmt.Errorf("AGENT_TOP_P must be between 0.0 and 1.0")
	}
	if config.AgentMaxPromptTokens < 0 {
		config.AgentMaxPromptTokens = 0
	}
	if config.AgentMaxCompletionTokens < 0 {
		config.AgentMaxCompletionTokens = 0
	}
	if config.AgentPollInterval <= 0 {
		return fmt.Errorf("AGENT_POLL_INTERVAL must be greater than 0")
	}

	if config.MCPServerPort < 1 || config.MCPServerPort > 65535 {
		return fmt.Errorf("MCP_SERVER_PORT must be between 1 and 65535")
	}
	if config.MCPRateLimit <= 0 {
		return fmt.Errorf("MCP_RATE_LIMIT must be greater than 0")
	}
	if config.MCPRateBurst <= 0 {
		return fmt.Errorf("MCP_RATE_BURST must be greater than 0")
	}

	return nil
}

func validateMongoURI(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid MONGODB_ATLAS_URI format: %w", err)
	}
	if parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv" {
		return fmt.Errorf("MONGODB_ATLAS_URI scheme must be mongodb or mongodb+srv")
	}
	if parsed.Host == "" {
		return fmt.Errorf("MONGODB_ATLAS_URI must include a valid host")
	}
	return nil
}

// ValidateSearch checks that everything the hybrid search path needs is present
func ValidateSearch(config *Config) error {
	var missing []string
	if config.MongoDBAtlasURI == "" {
		missing = append(missing, "MONGODB_ATLAS_URI")
	}
	if config.MongoDBAtlasDatabase == "" {
		missing = append(missing, "MONGODB_ATLAS_DATABASE")
	}
	if config.MongoDBAtlasCollection == "" {
		missing = append(missing, "MONGODB_ATLAS_COLLECTION")
	}

	switch config.EmbeddingProvider {
	case ProviderAzureInference:
		if config.AzureAIEmbeddingsEndpoint == "" {
			missing = append(missing, "AZURE_AI_EMBEDDINGS_ENDPOINT")
		}
		if config.EmbeddingModel == "" {
			missing = append(missing, "AZURE_FOUNDRY_EMBEDDING_MODEL")
		}
	case ProviderAzureOpenAI:
		if config.AzureAIEmbeddingsEndpoint == "" {
			missing = append(missing, "AZURE_AI_EMBEDDINGS_ENDPOINT")
		}
		if config.AzureAIEmbeddingsKey == "" {
			missing = append(missing, "AZURE_AI_EMBEDDINGS_KEY")
		}
		if config.EmbeddingModel == "" {
			missing = append(missing, "AZURE_FOUNDRY_EMBEDDING_MODEL")
		}
	case ProviderOpenAI:
		if config.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
		if config.EmbeddingModel == "" {
			missing = append(missing, "AZURE_FOUNDRY_EMBEDDING_MODEL")
		}
	case ProviderGemini:
		if config.GeminiAPIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateAgent checks the settings needed to create the remote agent
func ValidateAgent(config *Config) error {
	var missing []string
	if config.ProjectEndpoint == "" {
		missing = append(missing, "PROJECT_ENDPOINT")
	}
	if config.ModelDeploymentName == "" {
		missing = append(missing, "MODEL_DEPLOYMENT_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	parsed, err := url.Parse(config.ProjectEndpoint)
	if err != nil {
		return fmt.Errorf("invalid PROJECT_ENDPOINT URL format: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("PROJECT_ENDPOINT scheme must be http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("PROJECT_ENDPOINT must include a valid host")
	}
	return nil
}
