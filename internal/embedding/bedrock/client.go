package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/pmadusud/salesagent/internal/embedding"
)

// DefaultModelID is the Titan text embedding model used when none is configured
const DefaultModelID = "amazon.titan-embed-text-v2:0"

// InvokeModelAPI is the subset of the Bedrock runtime client used here
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient generates embeddings with Amazon Titan models on AWS Bedrock
type BedrockClient struct {
	client     InvokeModelAPI
	modelID    string
	region     string
	dimensions int
}

// TitanEmbeddingRequest represents the request structure for Titan embedding models
type TitanEmbeddingRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize,omitempty"`
}

// TitanEmbeddingResponse represents the response structure from Titan embedding models
type TitanEmbeddingResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewBedrockClient creates a new AWS Bedrock client for embeddings
func NewBedrockClient(awsConfig aws.Config, modelID string, dimensions int) *BedrockClient {
	return newWithAPI(bedrockruntime.NewFromConfig(awsConfig), awsConfig.Region, modelID, dimensions)
}

func newWithAPI(api InvokeModelAPI, region, modelID string, dimensions int) *BedrockClient {
	if modelID == "" {
		modelID = DefaultModelID
	}
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &BedrockClient{
		client:     api,
		modelID:    modelID,
		region:     region,
		dimensions: dimensions,
	}
}

// GenerateEmbedding creates an embedding vector from the given text using AWS Bedrock
func (c *BedrockClient) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	requestBody, err := json.Marshal(TitanEmbeddingRequest{
		InputText:  text,
		Dimensions: c.dimensions,
		Normalize:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	var response TitanEmbeddingResponse
	if err := json.Unmarshal(result.Body, &response); err != nil {
		log.Printf("ERROR: Failed to parse Bedrock response: %v", err)
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding data in response (tokens: %d): %w", response.InputTextTokenCount, embedding.ErrEmptyEmbedding)
	}

	return response.Embedding, nil
}

// ValidateConnection checks if the Bedrock service is accessible
func (c *BedrockClient) ValidateConnection(ctx context.Context) error {
	if _, err := c.GenerateEmbedding(ctx, "test connection"); err != nil {
		return fmt.Errorf("connection validation failed: %w", err)
	}
	return nil
}

// GetRegion returns the AWS region being used
func (c *BedrockClient) GetRegion() string {
	return c.region
}

func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("bedrock %s: %s: %w", apiErr.ErrorCode(), apiErr.ErrorMessage(), embedding.ErrProvider)
	}
	return fmt.Errorf("failed to invoke bedrock model: %w", err)
}
