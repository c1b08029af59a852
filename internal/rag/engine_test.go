package rag

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/memory"
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

// embedText builds a deterministic vector that is close to other vectors
// sharing the same first word, and far from vectors that don't, so search
// behaves predictably in tests without a real embedding model.
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
	response string
	err      error
	lastMsgs []ai.ChatMessage
}

func (f *fakeChatModel) Generate(ctx context.Context, messages []ai.ChatMessage) (string, ai.Usage, error) {
	f.lastMsgs = messages
	if f.err != nil {
		return "", ai.Usage{}, f.err
	}
	return f.response, ai.Usage{TotalTokens: 42}, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []ai.ChatMessage) (<-chan ai.StreamToken, error) {
	return nil, nil
}

func (f *fakeChatModel) ModelName() string { return "fake-chat" }

func newTestEngine(t *testing.T, chat ai.IChatModel, mgr *memory.Manager) (*Engine, *repo.ProjectRepo, *repo.DocumentRepo, vectorstore.Gateway, func()) {
	engine, projects, documents, gateway, _, cleanup := newTestEngineWithDB(t, chat, mgr)
	return engine, projects, documents, gateway, cleanup
}

func newTestEngineWithDB(t *testing.T, chat ai.IChatModel, mgr *memory.Manager) (*Engine, *repo.ProjectRepo, *repo.DocumentRepo, vectorstore.Gateway, *sql.DB, func()) {
	db, cleanup := testutil.OpenTestDB(t)
	projects := repo.NewProjectRepo(db)
	documents := repo.NewDocumentRepo(db)
	gateway := vectorstore.NewFakeGateway()
	embedder := &fakeEmbedder{dimension: 8}

	engine := New(projects, documents, embedder, gateway, chat, mgr, Config{MaxChunks: 5, SimilarityThreshold: 0})
	return engine, projects, documents, gateway, db, cleanup
}

func seedIndexedProject(t *testing.T, ctx context.Context, projects *repo.ProjectRepo, documents *repo.DocumentRepo, gateway vectorstore.Gateway, projectID, text string) *model.Project {
	project := &model.Project{ID: projectID, OwnerID: "owner-1", Name: "Biology"}
	require.NoError(t, projects.Create(ctx, project))

	doc := &model.Document{ID: projectID + "-doc", ProjectID: projectID, Filename: "bio.txt", OriginalName: "bio.txt", MimeType: "text/plain", ByteSize: int64(len(text)), StorageKey: "k1"}
	require.NoError(t, documents.Create(ctx, doc))

	handle, err := gateway.CreateCollection(ctx, projectID, 8)
	require.NoError(t, err)
	require.NoError(t, projects.SetCollectionHandle(ctx, projectID, handle))

	vec := embedText(text, 8)
	require.NoError(t, gateway.Upsert(ctx, handle, []vectorstore.Point{
		{ID: "pt-1", Vector: vec, DocumentID: doc.ID, ProjectID: projectID, Content: text, ChunkIndex: 0},
	}))

	project.CollectionHandle = handle
	return project
}

func TestQueryRequiresIndexedProject(t *testing.T) {
	engine, projects, _, _, cleanup := newTestEngine(t, &fakeChatModel{response: "answer"}, nil)
	defer cleanup()
	ctx := context.Background()

	project := &model.Project{ID: "proj-unindexed", OwnerID: "owner-1", Name: "Empty"}
	require.NoError(t, projects.Create(ctx, project))
	defer projects.Delete(ctx, project.ID)

	_, err := engine.Query(ctx, project.ID, "what is photosynthesis?")
	require.ErrorIs(t, err, coreerrors.ErrNotIndexed)
}

func TestQueryReturnsAnswerWithSources(t *testing.T) {
	engine, projects, documents, gateway, cleanup := newTestEngine(t, &fakeChatModel{response: "Photosynthesis converts light into chemical energy."}, nil)
	defer cleanup()
	ctx := context.Background()

	project := seedIndexedProject(t, ctx, projects, documents, gateway, "proj-query-1", "Photosynthesis converts light into chemical energy in plants.")
	defer projects.Delete(ctx, project.ID)

	resp, err := engine.Query(ctx, project.ID, "Photosynthesis converts light into chemical energy in plants.")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Answer)
	require.Len(t, resp.Sources, 1)
	require.Equal(t, "bio.txt", resp.Sources[0].Filename)
	require.Equal(t, 42, resp.TokensUsed)
}

func TestQueryNoRelevantResultsReturnsFixedMessage(t *testing.T) {
	chat := &fakeChatModel{response: "should not be called"}
	_, projects, documents, gateway, cleanup := newTestEngine(t, chat, nil)
	defer cleanup()
	ctx := context.Background()

	project := &model.Project{ID: "proj-query-2", OwnerID: "owner-1", Name: "Biology"}
	require.NoError(t, projects.Create(ctx, project))
	defer projects.Delete(ctx, project.ID)

	handle, err := gateway.CreateCollection(ctx, project.ID, 8)
	require.NoError(t, err)
	require.NoError(t, projects.SetCollectionHandle(ctx, project.ID, handle))

	// A threshold higher than any achievable cosine similarity guarantees
	// retrieval returns nothing even though the project is indexed.
	strictEngine := New(projects, documents, &fakeEmbedder{dimension: 8}, gateway, chat, nil, Config{MaxChunks: 5, SimilarityThreshold: 2})
	resp, err := strictEngine.Query(ctx, project.ID, "quantum cryptography")
	require.NoError(t, err)
	require.Equal(t, noRelevantResultsMessage, resp.Answer)
	require.Empty(t, resp.Sources)
	require.Equal(t, 0, resp.TokensUsed)
}

func TestEducationalQueryAppliesPrefix(t *testing.T) {
	chat := &fakeChatModel{response: "resumo"}
	engine, projects, documents, gateway, cleanup := newTestEngine(t, chat, nil)
	defer cleanup()
	ctx := context.Background()

	project := seedIndexedProject(t, ctx, projects, documents, gateway, "proj-edu-1", "Mitochondria are the powerhouse of the cell.")
	defer projects.Delete(ctx, project.ID)

	_, err := engine.EducationalQuery(ctx, project.ID, "mitochondria", EducationalSummary, "")
	require.NoError(t, err)
	require.NotEmpty(t, chat.lastMsgs)
	lastUserMsg := chat.lastMsgs[len(chat.lastMsgs)-1]
	require.Contains(t, lastUserMsg.Content, "Por favor, faça um resumo detalhado sobre:")
}

func TestQueryWithMemoryIncludesConversationHistory(t *testing.T) {
	chat := &fakeChatModel{response: "answer grounded in context and history"}
	_, projects, documents, gateway, db, cleanup := newTestEngineWithDB(t, chat, nil)
	defer cleanup()
	ctx := context.Background()

	project := seedIndexedProject(t, ctx, projects, documents, gateway, "proj-mem-1", "The mitochondria produces ATP through cellular respiration.")
	defer projects.Delete(ctx, project.ID)

	conversations := repo.NewConversationRepo(db)
	messages := repo.NewMessageRepo(db)
	conv := &model.Conversation{ID: "conv-mem-1", ProjectID: project.ID, Title: "Chat"}
	require.NoError(t, conversations.Create(ctx, conv))
	defer conversations.Delete(ctx, conv.ID)
	require.NoError(t, messages.Create(ctx, &model.Message{ID: "msg-1", ConversationID: conv.ID, Role: model.RoleUser, Content: "What powers the cell?"}))
	require.NoError(t, messages.Create(ctx, &model.Message{ID: "msg-2", ConversationID: conv.ID, Role: model.RoleAssistant, Content: "ATP powers the cell."}))

	mgr := memory.New(messages, nil, memory.DefaultConfig())
	engine := New(projects, documents, &fakeEmbedder{dimension: 8}, gateway, chat, mgr, Config{MaxChunks: 5, SimilarityThreshold: 0})

	resp, err := engine.QueryWithMemory(ctx, project.ID, "What powers the cell?", conv.ID)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Answer)
	require.NotEmpty(t, resp.Sources)

	var sawHistory bool
	for _, msg := range chat.lastMsgs {
		if msg.Content == "ATP powers the cell." {
			sawHistory = true
		}
	}
	require.True(t, sawHistory, "memory messages should be included in the chat request")
}
