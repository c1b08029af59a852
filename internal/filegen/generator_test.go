package filegen

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/filestore"
	"github.com/xxxsen/ragcore/internal/model"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"github.com/xxxsen/ragcore/internal/repo"
	"github.com/xxxsen/ragcore/internal/testutil"
	"github.com/xxxsen/ragcore/internal/vectorstore"
)

type fakeEmbedder struct{ dimension int }

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embedText(text, f.dimension)
	}
	return out, nil
}
func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedText(text, f.dimension), nil
}
func (f *fakeEmbedder) ModelName() string { return "fake-embed" }
func (f *fakeEmbedder) Dimension() int    { return f.dimension }

func embedText(text string, dimension int) []float32 {
	vec := make([]float32, dimension)
	sum := 0
	for _, r := range text {
		sum += int(r)
	}
	for i := range vec {
		vec[i] = float32((sum+i)%97) / 97.0
	}
	return vec
}

type fakeChatModel struct {
	text string
	err  error
}

func (f *fakeChatModel) Generate(ctx context.Context, messages []ai.ChatMessage) (string, ai.Usage, error) {
	if f.err != nil {
		return "", ai.Usage{}, f.err
	}
	return f.text, ai.Usage{TotalTokens: 42}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []ai.ChatMessage) (<-chan ai.StreamToken, error) {
	ch := make(chan ai.StreamToken, 1)
	close(ch)
	return ch, nil
}

func (f *fakeChatModel) ModelName() string { return "fake-chat" }

// fakeStore is an in-memory filestore.Store so generator tests don't need a
// real local/s3 backend wired up.
type fakeStore struct {
	objects map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (s *fakeStore) Save(ctx context.Context, key string, r filestore.ReadSeekCloser, size int64) error {
	data := make([]byte, size)
	if _, err := r.Read(data); err != nil && size > 0 {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Open(ctx context.Context, key string) (filestore.ReadSeekCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, coreerrors.ErrNotFound
	}
	return nopReadSeekCloser{bytes.NewReader(data)}, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

// fakePDFEngine sidesteps internal/pdfrender entirely; generator tests only
// need to know materialize() dispatched to it, not real PDF bytes.
type fakePDFEngine struct{}

func (fakePDFEngine) Render(doc PDFDocument) ([]byte, int, error) {
	return []byte("%PDF-fake"), 1, nil
}

func newTestGenerator(t *testing.T, chat ai.IChatModel) (*Generator, *repo.ProjectRepo, *repo.DocumentRepo, vectorstore.Gateway, *fakeStore, func()) {
	db, cleanup := testutil.OpenTestDB(t)
	files := repo.NewGeneratedFileRepo(db)
	versions := repo.NewGeneratedFileVersionRepo(db)
	projects := repo.NewProjectRepo(db)
	documents := repo.NewDocumentRepo(db)
	gateway := vectorstore.NewFakeGateway()
	store := newFakeStore()

	gen := New(files, versions, projects, documents, &fakeEmbedder{dimension: 8}, gateway, chat, store, fakePDFEngine{}, nil)
	return gen, projects, documents, gateway, store, cleanup
}

func seedGenProject(t *testing.T, ctx context.Context, projects *repo.ProjectRepo, projectID string) *model.Project {
	project := &model.Project{ID: projectID, OwnerID: "owner-1", Name: "Biology 101"}
	require.NoError(t, projects.Create(ctx, project))
	return project
}

// waitForVersion polls for the async generation job (launched by
// CreateFile/NewVersion in its own goroutine) to settle. require.Eventually
// drives the polling; the job itself has no synchronous completion signal
// to wait on instead.
func waitForVersion(t *testing.T, versions *repo.GeneratedFileVersionRepo, fileID string, version int, want model.JobStatus) *model.GeneratedFileVersion {
	t.Helper()
	var result *model.GeneratedFileVersion
	require.Eventually(t, func() bool {
		v, err := versions.Get(context.Background(), fileID, version)
		require.NoError(t, err)
		if v.Status == model.JobStatusFailed && want != model.JobStatusFailed {
			t.Fatalf("generation failed: %s", v.ErrorMessage)
		}
		if v.Status == want {
			result = v
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return result
}

func TestCreateFileGeneratesMarkdownArtifact(t *testing.T) {
	chat := &fakeChatModel{text: "# Study Guide\n\nPhotosynthesis converts light into chemical energy."}
	gen, projects, _, _, store, cleanup := newTestGenerator(t, chat)
	defer cleanup()
	ctx := context.Background()

	project := seedGenProject(t, ctx, projects, "proj-filegen-1")
	defer projects.Delete(ctx, project.ID)

	file, err := gen.CreateFile(ctx, CreateParams{
		ProjectID: project.ID, OwnerID: "owner-1", Prompt: "Crie um guia de estudos sobre fotossíntese",
		DisplayName: "Photosynthesis Guide", FileType: model.FileTypeStudyGuide, Format: model.FileFormatMarkdown,
	})
	require.NoError(t, err)
	require.Equal(t, "photosynthesis-guide", file.FileName)
	require.Equal(t, 1, file.CurrentVersion)

	v := waitForVersion(t, gen.versions, file.ID, 1, model.JobStatusCompleted)
	require.NotEmpty(t, v.StorageKey)

	data, ok := store.objects[v.StorageKey]
	require.True(t, ok)
	require.Contains(t, string(data), "Photosynthesis converts light")
	require.Contains(t, string(data), "title: Photosynthesis Guide")
}

func TestCreateFileTwiceDelegatesToNewVersion(t *testing.T) {
	chat := &fakeChatModel{text: "Resumo gerado."}
	gen, projects, _, _, _, cleanup := newTestGenerator(t, chat)
	defer cleanup()
	ctx := context.Background()

	project := seedGenProject(t, ctx, projects, "proj-filegen-2")
	defer projects.Delete(ctx, project.ID)

	params := CreateParams{
		ProjectID: project.ID, OwnerID: "owner-1", Prompt: "resumo",
		DisplayName: "Cell Summary", FileType: model.FileTypeSummary, Format: model.FileFormatMarkdown,
	}
	first, err := gen.CreateFile(ctx, params)
	require.NoError(t, err)
	waitForVersion(t, gen.versions, first.ID, 1, model.JobStatusCompleted)

	second, err := gen.CreateFile(ctx, params)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	waitForVersion(t, gen.versions, first.ID, 2, model.JobStatusCompleted)
}

func TestNewVersionIncrementsAndSetsCurrentVersion(t *testing.T) {
	chat := &fakeChatModel{text: "Conteúdo inicial."}
	gen, projects, _, _, _, cleanup := newTestGenerator(t, chat)
	defer cleanup()
	ctx := context.Background()

	project := seedGenProject(t, ctx, projects, "proj-filegen-3")
	defer projects.Delete(ctx, project.ID)

	file, err := gen.CreateFile(ctx, CreateParams{
		ProjectID: project.ID, OwnerID: "owner-1", Prompt: "conteúdo",
		DisplayName: "Lesson Plan", FileType: model.FileTypeLessonPlan, Format: model.FileFormatMarkdown,
	})
	require.NoError(t, err)
	waitForVersion(t, gen.versions, file.ID, 1, model.JobStatusCompleted)

	version, err := gen.NewVersion(ctx, NewVersionParams{FileID: file.ID, EditPrompt: "adicione uma seção de exercícios"})
	require.NoError(t, err)
	require.Equal(t, 2, version.Version)

	waitForVersion(t, gen.versions, file.ID, 2, model.JobStatusCompleted)

	updated, err := gen.files.Get(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, 2, updated.CurrentVersion)
}

func TestMaterializePDFDispatchesToPDFEngine(t *testing.T) {
	chat := &fakeChatModel{text: "# Quiz\n\nPergunta de exemplo."}
	gen, projects, _, _, store, cleanup := newTestGenerator(t, chat)
	defer cleanup()
	ctx := context.Background()

	project := seedGenProject(t, ctx, projects, "proj-filegen-4")
	defer projects.Delete(ctx, project.ID)

	file, err := gen.CreateFile(ctx, CreateParams{
		ProjectID: project.ID, OwnerID: "owner-1", Prompt: "quiz sobre células",
		DisplayName: "Cell Quiz", FileType: model.FileTypeQuiz, Format: model.FileFormatPDF,
	})
	require.NoError(t, err)

	v := waitForVersion(t, gen.versions, file.ID, 1, model.JobStatusCompleted)
	data, ok := store.objects[v.StorageKey]
	require.True(t, ok)
	require.Equal(t, []byte("%PDF-fake"), data)
	require.Equal(t, 1, v.PageCount)
}

func TestDownloadReturnsCurrentVersionWhenUnspecified(t *testing.T) {
	chat := &fakeChatModel{text: "Conteúdo para download."}
	gen, projects, _, _, _, cleanup := newTestGenerator(t, chat)
	defer cleanup()
	ctx := context.Background()

	project := seedGenProject(t, ctx, projects, "proj-filegen-5")
	defer projects.Delete(ctx, project.ID)

	file, err := gen.CreateFile(ctx, CreateParams{
		ProjectID: project.ID, OwnerID: "owner-1", Prompt: "resumo",
		DisplayName: "Download Me", FileType: model.FileTypeSummary, Format: model.FileFormatMarkdown,
	})
	require.NoError(t, err)
	waitForVersion(t, gen.versions, file.ID, 1, model.JobStatusCompleted)

	data, filename, contentType, err := gen.Download(ctx, file.ID, 0)
	require.NoError(t, err)
	require.Contains(t, string(data), "Conteúdo para download")
	require.Equal(t, "Download Me.md", filename)
	require.Equal(t, "text/markdown; charset=utf-8", contentType)
}

func TestDeleteCascadesVersionsAndArtifacts(t *testing.T) {
	chat := &fakeChatModel{text: "Conteúdo a ser apagado."}
	gen, projects, _, _, store, cleanup := newTestGenerator(t, chat)
	defer cleanup()
	ctx := context.Background()

	project := seedGenProject(t, ctx, projects, "proj-filegen-6")
	defer projects.Delete(ctx, project.ID)

	file, err := gen.CreateFile(ctx, CreateParams{
		ProjectID: project.ID, OwnerID: "owner-1", Prompt: "resumo",
		DisplayName: "Delete Me", FileType: model.FileTypeSummary, Format: model.FileFormatMarkdown,
	})
	require.NoError(t, err)
	v := waitForVersion(t, gen.versions, file.ID, 1, model.JobStatusCompleted)
	require.NotEmpty(t, store.objects[v.StorageKey])

	require.NoError(t, gen.Delete(ctx, file.ID))

	_, err = gen.files.Get(ctx, file.ID)
	require.Error(t, err)
	_, ok := store.objects[v.StorageKey]
	require.False(t, ok)
}
