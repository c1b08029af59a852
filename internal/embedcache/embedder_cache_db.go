package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/repo"
	"go.uber.org/zap"
)

// WrapDBCacheToEmbedder decorates an embedder with a Postgres-backed
// content cache keyed on (model, task_type, sha256(text)): any text
// whose embedding was already computed skips the provider call
// entirely, and only the cache misses are sent through as a batch.
func WrapDBCacheToEmbedder(e ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo *repo.EmbeddingCacheRepo
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if d == nil || d.next == nil {
		return nil, nil
	}
	modelName := normalizeModelName(d.next.ModelName())
	result := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	hashes := make([]string, len(texts))

	for i, text := range texts {
		hash := contentHash(text)
		hashes[i] = hash
		values, ok, err := d.repo.Get(ctx, modelName, taskType, hash)
		if err != nil {
			return nil, err
		}
		if ok {
			result[i] = values
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.Int("count", len(texts)), zap.String("task_type", taskType))
		return result, nil
	}

	vectors, err := d.next.EmbedBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		result[idx] = vectors[j]
		if err := d.repo.Save(ctx, &model.EmbeddingCache{
			ModelName:   modelName,
			TaskType:    taskType,
			ContentHash: hashes[idx],
			Embedding:   vectors[j],
			Ctime:       time.Now().Unix(),
		}); err != nil {
			logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return result, nil
}

func (d *dbEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := d.EmbedBatch(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

func (d *dbEmbedder) ModelName() string {
	if d == nil || d.next == nil {
		return ""
	}
	return d.next.ModelName()
}

func (d *dbEmbedder) Dimension() int {
	if d == nil || d.next == nil {
		return 0
	}
	return d.next.Dimension()
}

func contentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

func normalizeModelName(modelName string) string {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return "unknown"
	}
	return modelName
}
