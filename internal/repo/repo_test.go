package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/testutil"
)

func TestProjectCreateGetRoundtrip(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	repo := NewProjectRepo(db)
	ctx := context.Background()

	p := &model.Project{ID: "proj-1", OwnerID: "owner-1", Name: "Biology 101", Ctime: 1, Mtime: 1}
	require.NoError(t, repo.Create(ctx, p))
	defer repo.Delete(ctx, p.ID)

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)
	require.Empty(t, got.CollectionHandle)

	require.NoError(t, repo.SetCollectionHandle(ctx, p.ID, "project_proj-1"))
	err = repo.SetCollectionHandle(ctx, p.ID, "project_other")
	require.Error(t, err, "collection handle must never be reassigned once set")
}

func TestDocumentLifecycle(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	projects := NewProjectRepo(db)
	documents := NewDocumentRepo(db)
	ctx := context.Background()

	p := &model.Project{ID: "proj-2", OwnerID: "owner-1", Name: "History", Ctime: 1, Mtime: 1}
	require.NoError(t, projects.Create(ctx, p))
	defer projects.Delete(ctx, p.ID)

	d := &model.Document{ID: "doc-1", ProjectID: p.ID, Filename: "a.txt", OriginalName: "a.txt", MimeType: "text/plain", ByteSize: 10, StorageKey: "k1", Ctime: 1, Mtime: 1}
	require.NoError(t, documents.Create(ctx, d))

	unprocessed, err := documents.ListUnprocessed(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)

	require.NoError(t, documents.MarkProcessed(ctx, d.ID, 7, 1000))
	got, err := documents.Get(ctx, d.ID)
	require.NoError(t, err)
	require.True(t, got.IsProcessed())
	require.Equal(t, 7, got.TotalChunks)
}
