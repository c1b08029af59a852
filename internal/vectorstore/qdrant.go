package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/qdrant/go-client/qdrant"
	"github.com/xxxsen/common/logutil"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"go.uber.org/zap"
)

type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

type QdrantGateway struct {
	client *qdrant.Client
}

func NewQdrantGateway(cfg QdrantConfig) (*QdrantGateway, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: create client: %w", err)
	}
	return &QdrantGateway{client: client}, nil
}

// CreateCollection is idempotent: a collection already present for the
// project is returned as-is rather than recreated, matching §4.4.
func (g *QdrantGateway) CreateCollection(ctx context.Context, projectID string, dimension int) (string, error) {
	handle := CollectionHandle(projectID)
	exists, err := g.client.CollectionExists(ctx, handle)
	if err != nil {
		return "", coreerrors.ErrVectorStoreUnavailable
	}
	if exists {
		return handle, nil
	}
	err = g.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: handle,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return "", coreerrors.ErrVectorStoreUnavailable
	}
	return handle, nil
}

func (g *QdrantGateway) Upsert(ctx context.Context, handle string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	qPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload := map[string]interface{}{
			"document_id": p.DocumentID,
			"project_id":  p.ProjectID,
			"content":     p.Content,
			"chunk_index": int64(p.ChunkIndex),
		}
		for k, v := range p.Metadata {
			payload[k] = v
		}
		qPoints = append(qPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	_, err := g.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: handle,
		Points:         qPoints,
	})
	if err != nil {
		logutil.GetLogger(ctx).Error("qdrant upsert failed", zap.String("handle", handle), zap.Int("points", len(points)), zap.Error(err))
		return coreerrors.ErrVectorStoreUnavailable
	}
	return nil
}

func (g *QdrantGateway) Search(ctx context.Context, handle string, queryVector []float32, k int, scoreThreshold float32) ([]Match, error) {
	if k <= 0 {
		k = 5
	}
	limit := uint64(k)
	threshold := scoreThreshold
	results, err := g.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: handle,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, coreerrors.ErrVectorStoreUnavailable
	}
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{ID: r.Id.GetUuid(), Score: r.Score, Metadata: map[string]string{}}
		if p := r.Payload; p != nil {
			if v, ok := p["document_id"]; ok {
				m.DocumentID = v.GetStringValue()
			}
			if v, ok := p["content"]; ok {
				m.Content = v.GetStringValue()
			}
			if v, ok := p["chunk_index"]; ok {
				m.ChunkIndex = int(v.GetIntegerValue())
			}
			for k, v := range p {
				if k == "document_id" || k == "content" || k == "chunk_index" || k == "project_id" {
					continue
				}
				m.Metadata[k] = v.GetStringValue()
			}
		}
		matches = append(matches, m)
	}
	sortByScoreThenTieBreak(matches)
	return matches, nil
}

// sortByScoreThenTieBreak enforces the §4.4 ordering the backend does not
// guarantee itself: descending score, ties broken by lower chunk_index then
// lexicographically lower id.
func sortByScoreThenTieBreak(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].ChunkIndex != matches[j].ChunkIndex {
			return matches[i].ChunkIndex < matches[j].ChunkIndex
		}
		return matches[i].ID < matches[j].ID
	})
}

func (g *QdrantGateway) DeleteByDocument(ctx context.Context, handle string, documentID string) error {
	_, err := g.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: handle,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return coreerrors.ErrVectorStoreUnavailable
	}
	return nil
}

func (g *QdrantGateway) DeleteCollection(ctx context.Context, handle string) error {
	if err := g.client.DeleteCollection(ctx, handle); err != nil {
		return coreerrors.ErrVectorStoreUnavailable
	}
	return nil
}

func (g *QdrantGateway) Stats(ctx context.Context, handle string) (Stats, error) {
	info, err := g.client.GetCollectionInfo(ctx, handle)
	if err != nil {
		return Stats{}, coreerrors.ErrVectorStoreUnavailable
	}
	stats := Stats{
		PointsCount:         info.GetPointsCount(),
		IndexedVectorsCount: info.GetIndexedVectorsCount(),
		Status:              info.GetStatus().String(),
	}
	return stats, nil
}
