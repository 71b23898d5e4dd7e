package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/pmadusud/salesagent/internal/embedding"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubModels struct {
	model  string
	config *genai.EmbedContentConfig
	text   string
	resp   *genai.EmbedContentResponse
	err    error
}

func (s *stubModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	s.model = model
	s.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		s.text = contents[0].Parts[0].Text
	}
	return s.resp, s.err
}

func TestGenerateEmbedding(t *testing.T) {
	stub := &stubModels{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.5, 0.25}}},
	}}
	client := newWithModels(stub, "", 768)

	got, err := client.GenerateEmbedding(context.Background(), "renewal discount")
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, 0.25}, got)
	require.Equal(t, DefaultModel, stub.model)
	require.Equal(t, "renewal discount", stub.text)
	require.NotNil(t, stub.config.OutputDimensionality)
	require.Equal(t, int32(768), *stub.config.OutputDimensionality)
}

func TestGenerateEmbeddingErrors(t *testing.T) {
	quota := errors.New("quota")
	_, err := newWithModels(&stubModels{err: quota}, "m", 0).GenerateEmbedding(context.Background(), "q")
	require.ErrorIs(t, err, embedding.ErrProvider)
	require.ErrorIs(t, err, quota, "SDK error stays in the chain")

	_, err = newWithModels(&stubModels{resp: &genai.EmbedContentResponse{}}, "m", 0).GenerateEmbedding(context.Background(), "q")
	require.ErrorIs(t, err, embedding.ErrEmptyEmbedding)

	_, err = NewClient(context.Background(), "", "m", 0)
	require.Error(t, err)
}

func TestValidateConnection(t *testing.T) {
	ok := &stubModels{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1}}},
	}}
	require.NoError(t, newWithModels(ok, "m", 0).ValidateConnection(context.Background()))
	require.Equal(t, "test connection", ok.text)

	err := newWithModels(&stubModels{err: errors.New("API key not valid")}, "m", 0).ValidateConnection(context.Background())
	require.ErrorIs(t, err, embedding.ErrProvider)
	require.ErrorContains(t, err, "connection validation failed")
}
