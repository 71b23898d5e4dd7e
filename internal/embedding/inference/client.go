package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pmadusud/salesagent/internal/embedding"
)

// DefaultAPIVersion is the Azure AI model inference API version used when none is configured.
const DefaultAPIVersion = "2024-05-01-preview"

// InferenceClient calls the Azure AI model inference embeddings route
type InferenceClient struct {
	endpoint   string
	apiKey     string
	apiVersion string
	model      string
	dimensions int
	httpClient *http.Client
}

// EmbeddingsRequest represents the request body for /embeddings
type EmbeddingsRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// EmbeddingsResponse represents the response body for /embeddings.
// The embedding is kept raw because some deployments nest it one level deeper.
type EmbeddingsResponse struct {
	Data []struct {
		Embedding json.RawMessage `json:"embedding"`
		Index     int             `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// ErrorResponse represents an error body from the inference endpoint
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Option customizes an InferenceClient
type Option func(*InferenceClient)

// WithHTTPClient replaces the HTTP client, e.g. one carrying Entra ID bearer tokens
func WithHTTPClient(client *http.Client) Option {
	return func(c *InferenceClient) {
		c.httpClient = client
	}
}

// WithDimensions requests a reduced output dimension
func WithDimensions(dimensions int) Option {
	return func(c *InferenceClient) {
		c.dimensions = dimensions
	}
}

// WithAPIVersion overrides the api-version query parameter
func WithAPIVersion(version string) Option {
	return func(c *InferenceClient) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// NewInferenceClient creates a new Azure AI inference embeddings client.
// When apiKey is empty the HTTP client is expected to authorize requests itself.
func NewInferenceClient(endpoint, apiKey, model string, opts ...Option) *InferenceClient {
	c := &InferenceClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		apiVersion: DefaultAPIVersion,
		model:      model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *InferenceClient) embeddingsURL() (string, error) {
	base := c.endpoint
	if !strings.HasSuffix(base, "/embeddings") {
		base += "/embeddings"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid embeddings endpoint: %w", err)
	}
	query := parsed.Query()
	if query.Get("api-version") == "" {
		query.Set("api-version", c.apiVersion)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// GenerateEmbedding creates an embedding vector from the given text
func (c *InferenceClient) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	requestBody, err := json.Marshal(EmbeddingsRequest{
		Input:      []string{text},
		Model:      c.model,
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	target, err := c.embeddingsURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, errorResp.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var parsed EmbeddingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("no embedding data in response: %w", embedding.ErrEmptyEmbedding)
	}

	return embedding.Flatten(parsed.Data[0].Embedding)
}

// ValidateConnection checks if the embedding service is accessible
func (c *InferenceClient) ValidateConnection(ctx context.Context) error {
	if _, err := c.GenerateEmbedding(ctx, "test connection"); err != nil {
		return fmt.Errorf("connection validation failed: %w", err)
	}
	return nil
}

// Model returns the configured model name
func (c *InferenceClient) Model() string {
	return c.model
}
