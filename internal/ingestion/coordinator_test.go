package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragcore/internal/filestore"
	"github.com/xxxsen/ragcore/internal/loader"
	"github.com/xxxsen/ragcore/internal/model"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"github.com/xxxsen/ragcore/internal/repo"
	"github.com/xxxsen/ragcore/internal/splitter"
	"github.com/xxxsen/ragcore/internal/testutil"
	"github.com/xxxsen/ragcore/internal/vectorstore"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Save(ctx context.Context, key string, r filestore.ReadSeekCloser, size int64) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.data[key] = data
	return nil
}

func (m *memStore) Open(ctx context.Context, key string) (filestore.ReadSeekCloser, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("not found: %s", key)
	}
	return &memReadSeekCloser{Reader: bytes.NewReader(data)}, nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

type memReadSeekCloser struct {
	*bytes.Reader
}

func (m *memReadSeekCloser) Close() error { return nil }

type fakeEmbedder struct {
	dimension int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dimension)
		for j := range vec {
			vec[j] = float32(len(text)%(j+2)) / float32(j+3)
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }
func (f *fakeEmbedder) Dimension() int    { return f.dimension }

func newTestCoordinator(documents *repo.DocumentRepo, projects *repo.ProjectRepo, store *memStore) *Coordinator {
	return New(
		documents,
		projects,
		store,
		loader.New(),
		splitter.New(splitter.Config{ChunkSize: 40, Overlap: 5}),
		&fakeEmbedder{dimension: 4},
		vectorstore.NewFakeGateway(),
	)
}

func TestIngestCleanDocument(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	projects := repo.NewProjectRepo(db)
	documents := repo.NewDocumentRepo(db)
	store := newMemStore()
	ctx := context.Background()

	project := &model.Project{ID: "proj-ingest-1", OwnerID: "owner-1", Name: "Biology"}
	require.NoError(t, projects.Create(ctx, project))
	defer projects.Delete(ctx, project.ID)

	text := bytes.Repeat([]byte("Photosynthesis converts light into chemical energy. "), 20)
	require.NoError(t, store.Save(ctx, "doc-1.txt", &memReadSeekCloser{Reader: bytes.NewReader(text)}, int64(len(text))))

	doc := &model.Document{ID: "doc-ingest-1", ProjectID: project.ID, Filename: "bio.txt", OriginalName: "bio.txt", MimeType: "text/plain", ByteSize: int64(len(text)), StorageKey: "doc-1.txt"}
	require.NoError(t, documents.Create(ctx, doc))

	coordinator := newTestCoordinator(documents, projects, store)
	result, err := coordinator.Ingest(ctx, doc.ID)
	require.NoError(t, err)
	require.Greater(t, result.ChunksProcessed, 0)
	require.NotEmpty(t, result.CollectionHandle)

	got, err := documents.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, got.IsProcessed())
	require.Equal(t, result.ChunksProcessed, got.TotalChunks)
}

func TestIngestTwiceIsAlreadyProcessed(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	projects := repo.NewProjectRepo(db)
	documents := repo.NewDocumentRepo(db)
	store := newMemStore()
	ctx := context.Background()

	project := &model.Project{ID: "proj-ingest-2", OwnerID: "owner-1", Name: "History"}
	require.NoError(t, projects.Create(ctx, project))
	defer projects.Delete(ctx, project.ID)

	text := []byte("The fall of Rome reshaped the Mediterranean world for centuries.")
	require.NoError(t, store.Save(ctx, "doc-2.txt", &memReadSeekCloser{Reader: bytes.NewReader(text)}, int64(len(text))))

	doc := &model.Document{ID: "doc-ingest-2", ProjectID: project.ID, Filename: "rome.txt", OriginalName: "rome.txt", MimeType: "text/plain", ByteSize: int64(len(text)), StorageKey: "doc-2.txt"}
	require.NoError(t, documents.Create(ctx, doc))

	coordinator := newTestCoordinator(documents, projects, store)
	_, err := coordinator.Ingest(ctx, doc.ID)
	require.NoError(t, err)

	_, err = coordinator.Ingest(ctx, doc.ID)
	require.ErrorIs(t, err, coreerrors.ErrAlreadyProcessed)
}

func TestReingestReplacesPoints(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	projects := repo.NewProjectRepo(db)
	documents := repo.NewDocumentRepo(db)
	store := newMemStore()
	ctx := context.Background()

	project := &model.Project{ID: "proj-ingest-3", OwnerID: "owner-1", Name: "Chemistry"}
	require.NoError(t, projects.Create(ctx, project))
	defer projects.Delete(ctx, project.ID)

	shortText := []byte("Atoms bond to form molecules.")
	require.NoError(t, store.Save(ctx, "doc-3.txt", &memReadSeekCloser{Reader: bytes.NewReader(shortText)}, int64(len(shortText))))

	doc := &model.Document{ID: "doc-ingest-3", ProjectID: project.ID, Filename: "chem.txt", OriginalName: "chem.txt", MimeType: "text/plain", ByteSize: int64(len(shortText)), StorageKey: "doc-3.txt"}
	require.NoError(t, documents.Create(ctx, doc))

	coordinator := newTestCoordinator(documents, projects, store)
	first, err := coordinator.Ingest(ctx, doc.ID)
	require.NoError(t, err)

	longText := bytes.Repeat([]byte("Covalent and ionic bonds differ in how electrons are shared. "), 10)
	require.NoError(t, store.Save(ctx, "doc-3.txt", &memReadSeekCloser{Reader: bytes.NewReader(longText)}, int64(len(longText))))
	require.NoError(t, documents.UpdateStorageKey(ctx, doc.ID, "doc-3.txt", int64(len(longText)), 2))

	second, err := coordinator.Reingest(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.ChunksProcessed, second.ChunksProcessed)

	got, err := documents.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, second.ChunksProcessed, got.TotalChunks)
}
