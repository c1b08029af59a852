package stream

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/rag"
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

type fakeStreamingChat struct {
	tokens []string
}

func (f *fakeStreamingChat) Generate(ctx context.Context, messages []ai.ChatMessage) (string, ai.Usage, error) {
	return "unused", ai.Usage{}, nil
}

func (f *fakeStreamingChat) Stream(ctx context.Context, messages []ai.ChatMessage) (<-chan ai.StreamToken, error) {
	ch := make(chan ai.StreamToken, len(f.tokens)+1)
	go func() {
		defer close(ch)
		for _, tok := range f.tokens {
			ch <- ai.StreamToken{Content: tok}
		}
		ch <- ai.StreamToken{Done: true}
	}()
	return ch, nil
}

func (f *fakeStreamingChat) ModelName() string { return "fake-chat-stream" }

type fixedOwnership struct {
	owns bool
	err  error
}

func (f *fixedOwnership) Owns(ctx context.Context, userID, projectID string) (bool, error) {
	return f.owns, f.err
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func newTestSession(t *testing.T, chat ai.IChatModel) (*Session, *repo.ProjectRepo, *repo.DocumentRepo, vectorstore.Gateway, func()) {
	session, projects, documents, gateway, _, cleanup := newTestSessionWithMessages(t, chat)
	return session, projects, documents, gateway, cleanup
}

func newTestSessionWithMessages(t *testing.T, chat ai.IChatModel) (*Session, *repo.ProjectRepo, *repo.DocumentRepo, vectorstore.Gateway, *repo.MessageRepo, func()) {
	db, cleanup := testutil.OpenTestDB(t)
	projects := repo.NewProjectRepo(db)
	documents := repo.NewDocumentRepo(db)
	conversations := repo.NewConversationRepo(db)
	messages := repo.NewMessageRepo(db)
	gateway := vectorstore.NewFakeGateway()

	engine := rag.New(projects, documents, &fakeEmbedder{dimension: 8}, gateway, chat, nil, rag.Config{MaxChunks: 5, SimilarityThreshold: 0})
	session := New(engine, conversations, messages, &fixedOwnership{owns: true}, sequentialIDs("id"))
	return session, projects, documents, gateway, messages, cleanup
}

func seedProject(t *testing.T, ctx context.Context, projects *repo.ProjectRepo, documents *repo.DocumentRepo, gateway vectorstore.Gateway, projectID, text string) *model.Project {
	project := &model.Project{ID: projectID, OwnerID: "owner-1", Name: "Biology"}
	require.NoError(t, projects.Create(ctx, project))

	doc := &model.Document{ID: projectID + "-doc", ProjectID: projectID, Filename: "bio.txt", OriginalName: "bio.txt", MimeType: "text/plain", ByteSize: int64(len(text)), StorageKey: "k1"}
	require.NoError(t, documents.Create(ctx, doc))

	handle, err := gateway.CreateCollection(ctx, projectID, 8)
	require.NoError(t, err)
	require.NoError(t, projects.SetCollectionHandle(ctx, projectID, handle))

	require.NoError(t, gateway.Upsert(ctx, handle, []vectorstore.Point{
		{ID: "pt-1", Vector: embedText(text, 8), DocumentID: doc.ID, ProjectID: projectID, Content: text, ChunkIndex: 0},
	}))
	return project
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestSessionHappyPathEmitsFullEventSequence(t *testing.T) {
	chat := &fakeStreamingChat{tokens: []string{"Photo", "synthesis ", "converts light."}}
	session, projects, documents, gateway, cleanup := newTestSession(t, chat)
	defer cleanup()
	ctx := context.Background()

	project := seedProject(t, ctx, projects, documents, gateway, "proj-stream-1", "Photosynthesis converts light into chemical energy.")
	defer projects.Delete(ctx, project.ID)

	go session.Start(ctx, "owner-1", StartRequest{ProjectID: project.ID, Message: "Photosynthesis converts light into chemical energy."})
	events := drain(session.Events)

	var types []EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	require.Contains(t, types, EventConversationCreated)
	require.Contains(t, types, EventUserMessage)
	require.Contains(t, types, EventStreamStart)
	require.Contains(t, types, EventStreamChunk)
	require.Contains(t, types, EventStreamComplete)

	var full string
	for _, ev := range events {
		if ev.Type == EventStreamComplete {
			full = ev.Content
		}
	}
	require.Equal(t, "Photosynthesis converts light.", full)
}

func TestSessionRejectsNonOwner(t *testing.T) {
	chat := &fakeStreamingChat{tokens: []string{"ignored"}}
	session, projects, documents, gateway, cleanup := newTestSession(t, chat)
	defer cleanup()
	ctx := context.Background()

	project := seedProject(t, ctx, projects, documents, gateway, "proj-stream-2", "Mitochondria produce ATP.")
	defer projects.Delete(ctx, project.ID)
	session.ownership = &fixedOwnership{owns: false}

	go session.Start(ctx, "intruder", StartRequest{ProjectID: project.ID, Message: "What powers the cell?"})
	events := drain(session.Events)

	require.Len(t, events, 2)
	require.Equal(t, EventStatus, events[0].Type)
	require.Equal(t, EventError, events[1].Type)
}

func TestSessionCancellationPersistsNoAssistantMessage(t *testing.T) {
	chat := &fakeStreamingChat{tokens: []string{"a", "b", "c"}}
	session, projects, documents, gateway, messages, cleanup := newTestSessionWithMessages(t, chat)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	bg := context.Background()
	project := seedProject(t, bg, projects, documents, gateway, "proj-stream-3", "Mitochondria produce ATP in the cell.")
	defer projects.Delete(bg, project.ID)

	cancel()
	var conversationID string
	go session.Start(ctx, "owner-1", StartRequest{ProjectID: project.ID, Message: "What powers the cell?"})
	for ev := range session.Events {
		if ev.Type == EventConversationCreated {
			conversationID = ev.ConversationID
		}
		require.NotEqual(t, EventStreamComplete, ev.Type)
	}

	if conversationID != "" {
		msgs, err := messages.ListByConversation(bg, conversationID)
		require.NoError(t, err)
		for _, msg := range msgs {
			require.NotEqual(t, model.RoleAssistant, msg.Role)
		}
	}
}
