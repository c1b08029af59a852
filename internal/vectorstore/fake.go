package vectorstore

import (
	"context"
	"sort"

	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
)

// FakeGateway is an in-memory Gateway used by unit tests for packages that
// depend on the Vector Store Gateway without needing a running Qdrant.
type FakeGateway struct {
	collections map[string]int
	points      map[string][]Point
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{collections: map[string]int{}, points: map[string][]Point{}}
}

func (f *FakeGateway) CreateCollection(ctx context.Context, projectID string, dimension int) (string, error) {
	handle := CollectionHandle(projectID)
	if _, ok := f.collections[handle]; !ok {
		f.collections[handle] = dimension
	}
	return handle, nil
}

func (f *FakeGateway) Upsert(ctx context.Context, handle string, points []Point) error {
	if _, ok := f.collections[handle]; !ok {
		return coreerrors.ErrVectorStoreUnavailable
	}
	f.points[handle] = append(f.points[handle], points...)
	return nil
}

func (f *FakeGateway) Search(ctx context.Context, handle string, queryVector []float32, k int, scoreThreshold float32) ([]Match, error) {
	var matches []Match
	for _, p := range f.points[handle] {
		score := cosineSimilarity(queryVector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		matches = append(matches, Match{
			ID:         p.ID,
			Score:      score,
			DocumentID: p.DocumentID,
			Content:    p.Content,
			ChunkIndex: p.ChunkIndex,
			Metadata:   p.Metadata,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].ChunkIndex != matches[j].ChunkIndex {
			return matches[i].ChunkIndex < matches[j].ChunkIndex
		}
		return matches[i].ID < matches[j].ID
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (f *FakeGateway) DeleteByDocument(ctx context.Context, handle string, documentID string) error {
	kept := f.points[handle][:0]
	for _, p := range f.points[handle] {
		if p.DocumentID != documentID {
			kept = append(kept, p)
		}
	}
	f.points[handle] = kept
	return nil
}

func (f *FakeGateway) DeleteCollection(ctx context.Context, handle string) error {
	delete(f.collections, handle)
	delete(f.points, handle)
	return nil
}

func (f *FakeGateway) Stats(ctx context.Context, handle string) (Stats, error) {
	return Stats{PointsCount: uint64(len(f.points[handle])), IndexedVectorsCount: uint64(len(f.points[handle])), Status: "green"}, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (sqrt(normA) * sqrt(normB)))
}

func sqrt(v float64) float64 {
	if v == 0 {
		return 0
	}
	x := v
	for i := 0; i < 40; i++ {
		x = x - (x*x-v)/(2*x)
	}
	return x
}
