package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEmbedding(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []float64
	}{
		{
			name:     "flat vector",
			response: `{"data":[{"embedding":[0.1,0.2,0.3],"index":0}],"model":"m"}`,
			want:     []float64{0.1, 0.2, 0.3},
		},
		{
			name:     "nested vector takes first element",
			response: `{"data":[{"embedding":[[0.5,0.6],[0.7,0.8]],"index":0}],"model":"m"}`,
			want:     []float64{0.5, 0.6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReq EmbeddingsRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/models/embeddings", r.URL.Path)
				assert.Equal(t, DefaultAPIVersion, r.URL.Query().Get("api-version"))
				assert.Equal(t, "secret", r.Header.Get("api-key"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.response))
			}))
			t.Cleanup(server.Close)

			client := NewInferenceClient(server.URL+"/models/", "secret", "text-embedding-3-small")
			got, err := client.GenerateEmbedding(context.Background(), "laptops under 1000")
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, []string{"laptops under 1000"}, gotReq.Input)
			require.Equal(t, "text-embedding-3-small", gotReq.Model)
		})
	}
}

func TestGenerateEmbeddingErrors(t *testing.T) {
	t.Run("api error message surfaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"401","message":"Access denied due to invalid subscription key"}}`))
		}))
		t.Cleanup(server.Close)

		_, err := NewInferenceClient(server.URL, "bad", "m").GenerateEmbedding(context.Background(), "q")
		require.Error(t, err)
		require.Contains(t, err.Error(), "API error (401)")
		require.Contains(t, err.Error(), "invalid subscription key")
	})

	t.Run("empty data", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		t.Cleanup(server.Close)

		_, err := NewInferenceClient(server.URL, "k", "m").GenerateEmbedding(context.Background(), "q")
		require.Error(t, err)
	})

	t.Run("empty embedding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"embedding":[],"index":0}]}`))
		}))
		t.Cleanup(server.Close)

		_, err := NewInferenceClient(server.URL, "k", "m").GenerateEmbedding(context.Background(), "q")
		require.Error(t, err)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := NewInferenceClient("http://unused", "k", "m").GenerateEmbedding(context.Background(), "")
		require.Error(t, err)
	})
}

func TestKeylessRequestUsesProvidedClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("api-key"))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,2],"index":0}]}`))
	}))
	t.Cleanup(server.Close)

	client := NewInferenceClient(server.URL, "", "m", WithHTTPClient(server.Client()), WithAPIVersion("2025-01-01"))
	got, err := client.GenerateEmbedding(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, got)
}

func TestValidateConnection(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1],"index":0}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":{"code":"403","message":"Principal does not have access"}}`))
	}))
	t.Cleanup(server.Close)

	client := NewInferenceClient(server.URL, "k", "m")
	require.NoError(t, client.ValidateConnection(context.Background()))

	status = http.StatusForbidden
	err := client.ValidateConnection(context.Background())
	require.ErrorContains(t, err, "connection validation failed")
	require.ErrorContains(t, err, "Principal does not have access")
}
