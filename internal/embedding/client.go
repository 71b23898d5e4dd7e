package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyEmbedding is returned when a provider answers without a usable vector.
	ErrEmptyEmbedding = errors.New("embedding is empty")
	// ErrProvider wraps failures reported by the remote embedding service.
	ErrProvider = errors.New("embedding provider error")
)

// Client turns text into a single flat embedding vector
type Client interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
	ValidateConnection(ctx context.Context) error
}

// Flatten normalizes a decoded embedding payload into one flat vector.
// Providers that answer with a list of vectors yield the first one.
func Flatten(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case nil:
		return nil, ErrEmptyEmbedding
	case []float64:
		if len(v) == 0 {
			return nil, ErrEmptyEmbedding
		}
		return v, nil
	case []float32:
		if len(v) == 0 {
			return nil, ErrEmptyEmbedding
		}
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, nil
	case [][]float64:
		if len(v) == 0 {
			return nil, ErrEmptyEmbedding
		}
		return Flatten(v[0])
	case [][]float32:
		if len(v) == 0 {
			return nil, ErrEmptyEmbedding
		}
		return Flatten(v[0])
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode embedding: %w", err)
		}
		return Flatten(decoded)
	case []any:
		if len(v) == 0 {
			return nil, ErrEmptyEmbedding
		}
		if _, nested := v[0].([]any); nested {
			return Flatten(v[0])
		}
		out := make([]float64, len(v))
		for i, item := range v {
			f, err := toFloat(item)
			if err != nil {
				return nil, fmt.Errorf("embedding element %d: %w", i, err)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported embedding type %T", raw)
	}
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("non-numeric value of type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	return f, nil
}
