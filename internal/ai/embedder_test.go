package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedProvider struct {
	name      string
	failTimes int
	calls     int
	vectors   [][]float32
}

func (f *fakeEmbedProvider) Name() string { return f.name }

func (f *fakeEmbedProvider) Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failTimes {
		return nil, assertErr
	}
	return f.vectors, nil
}

var assertErr = assertError{}

type assertError struct{}

func (assertError) Error() string { return "boom" }

func TestEmbedderRetriesThenSucceeds(t *testing.T) {
	provider := &fakeEmbedProvider{name: "fake", failTimes: 1, vectors: [][]float32{{0.1, 0.2}}}
	e := &providerEmbedder{provider: provider, model: "fake-model", dimension: 2, retry: RetryConfig{Attempts: 3, Start: 0, Factor: 1}}

	vectors, err := e.EmbedBatch(context.Background(), []string{"hello"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}}, vectors)
	assert.Equal(t, 2, provider.calls)
}

func TestEmbedderFailsAfterExhaustingRetries(t *testing.T) {
	provider := &fakeEmbedProvider{name: "fake", failTimes: 10}
	e := &providerEmbedder{provider: provider, model: "fake-model", dimension: 2, retry: RetryConfig{Attempts: 2, Start: 0, Factor: 1}}

	_, err := e.EmbedBatch(context.Background(), []string{"hello"}, "RETRIEVAL_DOCUMENT")
	require.Error(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestEmbeddingDimensionDefaults(t *testing.T) {
	assert.Equal(t, 1536, EmbeddingDimension("text-embedding-3-small", 0))
	assert.Equal(t, 3072, EmbeddingDimension("text-embedding-3-large", 0))
	assert.Equal(t, 99, EmbeddingDimension("text-embedding-3-small", 99))
}
