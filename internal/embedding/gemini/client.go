package gemini

import (
	"context"
	"fmt"

	"github.com/pmadusud/salesagent/internal/embedding"
	"google.golang.org/genai"
)

// DefaultModel is used when GEMINI_EMBEDDING_MODEL is empty
const DefaultModel = "gemini-embedding-001"

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Client generates embeddings with the Gemini API
type Client struct {
	models     contentEmbedder
	model      string
	dimensions int32
}

// NewClient creates a Gemini embedding client
func NewClient(ctx context.Context, apiKey, model string, dimensions int) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newWithModels(client.Models, model, dimensions), nil
}

func newWithModels(models contentEmbedder, model string, dimensions int) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		models:     models,
		model:      model,
		dimensions: int32(dimensions),
	}
}

// GenerateEmbedding creates an embedding vector from the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	config := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_QUERY"}
	if c.dimensions > 0 {
		config.OutputDimensionality = &c.dimensions
	}

	resp, err := c.models.EmbedContent(ctx, c.model, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content failed: %w: %w", embedding.ErrProvider, err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding data in response: %w", embedding.ErrEmptyEmbedding)
	}

	return embedding.Flatten(resp.Embeddings[0].Values)
}

// ValidateConnection checks if the Gemini API is accessible
func (c *Client) ValidateConnection(ctx context.Context) error {
	if _, err := c.GenerateEmbedding(ctx, "test connection"); err != nil {
		return fmt.Errorf("connection validation failed: %w", err)
	}
	return nil
}
