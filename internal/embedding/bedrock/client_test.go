package bedrock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/pmadusud/salesagent/internal/embedding"
	"github.com/stretchr/testify/require"
)

type stubInvoker struct {
	input  *bedrockruntime.InvokeModelInput
	output []byte
	err    error
}

func (s *stubInvoker) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	s.input = params
	if s.err != nil {
		return nil, s.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: s.output}, nil
}

func TestGenerateEmbedding(t *testing.T) {
	stub := &stubInvoker{output: []byte(`{"embedding":[0.1,0.2],"inputTextTokenCount":2}`)}
	client := newWithAPI(stub, "us-east-1", "", 256)

	got, err := client.GenerateEmbedding(context.Background(), "enterprise pricing")
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, 0.2}, got)

	require.Equal(t, DefaultModelID, aws.ToString(stub.input.ModelId))
	var sent TitanEmbeddingRequest
	require.NoError(t, json.Unmarshal(stub.input.Body, &sent))
	require.Equal(t, "enterprise pricing", sent.InputText)
	require.Equal(t, 256, sent.Dimensions)
	require.True(t, sent.Normalize)
}

func TestGenerateEmbeddingErrors(t *testing.T) {
	t.Run("api error classified", func(t *testing.T) {
		stub := &stubInvoker{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"}}
		_, err := newWithAPI(stub, "us-east-1", "", 0).GenerateEmbedding(context.Background(), "q")
		require.ErrorIs(t, err, embedding.ErrProvider)
		require.Contains(t, err.Error(), "AccessDeniedException")
	})

	t.Run("empty embedding", func(t *testing.T) {
		stub := &stubInvoker{output: []byte(`{"embedding":[],"inputTextTokenCount":1}`)}
		_, err := newWithAPI(stub, "us-east-1", "", 0).GenerateEmbedding(context.Background(), "q")
		require.ErrorIs(t, err, embedding.ErrEmptyEmbedding)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := newWithAPI(&stubInvoker{}, "us-east-1", "", 0).GenerateEmbedding(context.Background(), "")
		require.Error(t, err)
	})
}

func TestSharedClientReuse(t *testing.T) {
	cfg := aws.Config{Region: "us-west-2"}
	first := GetSharedBedrockClient(cfg, "amazon.titan-embed-text-v2:0", 512)
	second := GetSharedBedrockClient(cfg, "amazon.titan-embed-text-v2:0", 512)
	other := GetSharedBedrockClient(cfg, "amazon.titan-embed-text-v2:0", 1024)

	require.Same(t, first, second)
	require.NotSame(t, first, other)
	require.Equal(t, "us-west-2", first.GetRegion())
}

func TestValidateConnection(t *testing.T) {
	ok := &stubInvoker{output: []byte(`{"embedding":[0.3],"inputTextTokenCount":2}`)}
	require.NoError(t, newWithAPI(ok, "us-east-1", "", 0).ValidateConnection(context.Background()))

	denied := &stubInvoker{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"}}
	err := newWithAPI(denied, "us-east-1", "", 0).ValidateConnection(context.Background())
	require.ErrorIs(t, err, embedding.ErrProvider)
	require.ErrorContains(t, err, "connection validation failed")
}
