package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/ragcore/internal/ai"
	"go.uber.org/zap"
)

// WrapLruCacheToEmbedder sits in front of WrapDBCacheToEmbedder (or the
// raw provider embedder) with a process-local, TTL-bounded cache so
// repeated queries within the same process never round-trip to Postgres.
func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if l == nil || l.next == nil {
		return nil, nil
	}
	modelName := normalizeModelName(l.next.ModelName())
	result := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	keys := make([]string, len(texts))

	for i, text := range texts {
		key := modelName + ":" + taskType + ":" + contentHash(text)
		keys[i] = key
		if cached, ok := l.cache.Get(key); ok {
			result[i] = cloneEmbedding(cached)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.Int("count", len(texts)), zap.String("task_type", taskType))
		return result, nil
	}

	vectors, err := l.next.EmbedBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		result[idx] = vectors[j]
		l.cache.Add(keys[idx], cloneEmbedding(vectors[j]))
	}
	return result, nil
}

func (l *lruEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := l.EmbedBatch(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

func (l *lruEmbedder) ModelName() string {
	if l == nil || l.next == nil {
		return ""
	}
	return l.next.ModelName()
}

func (l *lruEmbedder) Dimension() int {
	if l == nil || l.next == nil {
		return 0
	}
	return l.next.Dimension()
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
