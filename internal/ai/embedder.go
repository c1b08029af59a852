package ai

import (
	"context"

	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
)

// IEmbedder is the embedder contract consumed by the rest of the core
// (§4.3): batch and single-text embedding with a final EmbeddingUnavailable
// on exhausted retries, and a stable native dimension.
type IEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelName() string
	Dimension() int
}

type providerEmbedder struct {
	provider  IEmbedProvider
	model     string
	dimension int
	retry     RetryConfig
}

func NewEmbedder(provider IEmbedProvider, model string, dimension int) IEmbedder {
	return &providerEmbedder{provider: provider, model: model, dimension: dimension, retry: DefaultEmbedRetry()}
}

func (e *providerEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if e.provider == nil {
		return nil, coreerrors.ErrEmbeddingUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}
	var vectors [][]float32
	err := withRetry(ctx, e.retry, "embed_batch", func() error {
		res, err := e.provider.Embed(ctx, e.model, texts, taskType)
		if err != nil {
			return err
		}
		vectors = res
		return nil
	})
	if err != nil {
		return nil, coreerrors.ErrEmbeddingUnavailable
	}
	return vectors, nil
}

func (e *providerEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, coreerrors.ErrEmbeddingUnavailable
	}
	return vectors[0], nil
}

func (e *providerEmbedder) ModelName() string { return e.model }
func (e *providerEmbedder) Dimension() int    { return e.dimension }

// EmbeddingDimension resolves a model name to its native vector width using
// the well-known dimensions of the two wired providers; main uses it to
// size the embedder, whose Dimension() sets the width of new collections,
// when the config does not pin a dimension.
func EmbeddingDimension(modelName string, configured int) int {
	if configured > 0 {
		return configured
	}
	switch modelName {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-004", "gemini-embedding-001":
		return 768
	default:
		return 1536
	}
}
