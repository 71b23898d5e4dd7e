package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pmadusud/salesagent/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const embeddingBody = `{"object":"list","data":[{"object":"embedding","embedding":[0.25,0.5,0.75],"index":0}],"model":"text-embedding-3-small","usage":{"prompt_tokens":3,"total_tokens":3}}`

func TestGenerateEmbeddingOpenAI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(embeddingBody))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		APIKey:  "sk-test",
		BaseURL: server.URL + "/v1",
		Model:   "text-embedding-3-small",
	})

	got, err := client.GenerateEmbedding(context.Background(), "quarterly sales")
	require.NoError(t, err)
	require.Equal(t, []float64{0.25, 0.5, 0.75}, got)
}

func TestGenerateEmbeddingAzure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/embed-3.small/embeddings", r.URL.Path)
		assert.Equal(t, "2024-10-21", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(embeddingBody))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		APIKey:     "azure-key",
		BaseURL:    server.URL,
		Model:      "embed-3.small",
		Azure:      true,
		APIVersion: "2024-10-21",
	})

	got, err := client.GenerateEmbedding(context.Background(), "quarterly sales")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestGenerateEmbeddingAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "m"})

	_, err := client.GenerateEmbedding(context.Background(), "q")
	require.Error(t, err)
	require.ErrorIs(t, err, embedding.ErrProvider)
	require.Contains(t, err.Error(), "401")
	require.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestGenerateEmbeddingEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"m"}`))
	}))
	t.Cleanup(server.Close)

	_, err := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"}).GenerateEmbedding(context.Background(), "q")
	require.ErrorIs(t, err, embedding.ErrEmptyEmbedding)
}

func TestValidateConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(embeddingBody))
	}))
	t.Cleanup(server.Close)

	require.NoError(t, NewClient(Config{APIKey: "good", BaseURL: server.URL, Model: "m"}).ValidateConnection(context.Background()))

	err := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "m"}).ValidateConnection(context.Background())
	require.ErrorIs(t, err, embedding.ErrProvider)
	require.ErrorContains(t, err, "connection validation failed")
}
