package vectorstore

import (
	"context"
)

// Point is one (id, vector, payload) record as defined in §4.4. Payload
// fields duplicate document_id/project_id so search results carry
// back-pointers without a relational join.
type Point struct {
	ID         string
	Vector     []float32
	DocumentID string
	ProjectID  string
	Content    string
	ChunkIndex int
	Metadata   map[string]string
}

type Match struct {
	ID         string
	Score      float32
	DocumentID string
	Content    string
	ChunkIndex int
	Metadata   map[string]string
}

type Stats struct {
	PointsCount         uint64
	IndexedVectorsCount uint64
	Status              string
}

// Gateway is the Vector Store Gateway abstraction of §4.4, independent of
// the concrete backend.
type Gateway interface {
	CreateCollection(ctx context.Context, projectID string, dimension int) (string, error)
	Upsert(ctx context.Context, handle string, points []Point) error
	Search(ctx context.Context, handle string, queryVector []float32, k int, scoreThreshold float32) ([]Match, error)
	DeleteByDocument(ctx context.Context, handle string, documentID string) error
	DeleteCollection(ctx context.Context, handle string) error
	Stats(ctx context.Context, handle string) (Stats, error)
}

func CollectionHandle(projectID string) string {
	return "project_" + projectID
}

