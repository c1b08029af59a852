package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// EmbedderEntry lets the core fall back across multiple configured
// embedding providers (e.g. a cheaper embedder first, then a larger one)
// via NewGroupEmbedder, without the caller knowing the difference from a
// single provider. ChatModelEntry only pairs a name with a chat model; no
// chat-model group is built from it.

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type ChatModelEntry struct {
	Name  string
	Model IChatModel
}

type groupEmbedder struct {
	items []EmbedderEntry
}

func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.EmbedBatch(ctx, texts, taskType)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder failed, trying next", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

func (g *groupEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	return vectors[0], nil
}

func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Name != "" {
			names = append(names, item.Name)
		}
	}
	return strings.Join(names, "|")
}

func (g *groupEmbedder) Dimension() int {
	if len(g.items) == 0 || g.items[0].Embedder == nil {
		return 0
	}
	return g.items[0].Embedder.Dimension()
}
