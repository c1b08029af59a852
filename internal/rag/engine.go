package rag

import (
	"context"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/memory"
	"github.com/xxxsen/ragcore/internal/model"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"github.com/xxxsen/ragcore/internal/repo"
	"github.com/xxxsen/ragcore/internal/vectorstore"
)

// noRelevantResultsMessage is the fixed locale-appropriate response for a
// query whose retrieval step returns nothing above the similarity
// threshold (§4.7, "NoRelevantResults" — not an error).
const noRelevantResultsMessage = "Desculpe, não encontrei informações relevantes sobre esse assunto nos documentos deste projeto."

// EducationalQueryType selects the fixed Portuguese rewrite prefix applied
// by EducationalQuery before dispatching to Query or QueryWithMemory.
type EducationalQueryType string

const (
	EducationalQuestion   EducationalQueryType = "question"
	EducationalSummary    EducationalQueryType = "summary"
	EducationalQuiz       EducationalQueryType = "quiz"
	EducationalExplanation EducationalQueryType = "explanation"
)

var educationalPrefixes = map[EducationalQueryType]string{
	EducationalSummary:     "Por favor, faça um resumo detalhado sobre: ",
	EducationalQuiz:        "Crie questões de múltipla escolha com 4 alternativas sobre: ",
	EducationalExplanation: "Explique detalhadamente o conceito e forneça exemplos práticos sobre: ",
}

// Response is the answer to one query, as returned by Query,
// QueryWithMemory, and EducationalQuery (§4.7 step 8).
type Response struct {
	Answer     string
	Sources    []model.RetrievedChunk
	TokensUsed int
}

// Config carries the retrieval parameters a query needs from §6's
// RAG_MAX_CHUNKS / RAG_SIMILARITY_THRESHOLD.
type Config struct {
	MaxChunks           int
	SimilarityThreshold float64
}

// Engine is the RAG Query Engine of §4.7: it answers a user query against
// a project's indexed documents, optionally informed by conversation
// memory, and attributes every answer to the chunks that grounded it.
type Engine struct {
	projects  *repo.ProjectRepo
	documents *repo.DocumentRepo
	embedder  ai.IEmbedder
	gateway   vectorstore.Gateway
	chat      ai.IChatModel
	memory    *memory.Manager
	cfg       Config
}

func New(
	projects *repo.ProjectRepo,
	documents *repo.DocumentRepo,
	embedder ai.IEmbedder,
	gateway vectorstore.Gateway,
	chat ai.IChatModel,
	memoryMgr *memory.Manager,
	cfg Config,
) *Engine {
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = 5
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.4
	}
	return &Engine{
		projects:  projects,
		documents: documents,
		embedder:  embedder,
		gateway:   gateway,
		chat:      chat,
		memory:    memoryMgr,
		cfg:       cfg,
	}
}

// Query implements §4.7's stateless query(project_id, text).
func (e *Engine) Query(ctx context.Context, projectID, text string) (*Response, error) {
	handle, err := e.RequireCollection(ctx, projectID)
	if err != nil {
		return nil, err
	}

	matches, err := e.Retrieve(ctx, handle, text)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &Response{Answer: noRelevantResultsMessage}, nil
	}

	sources := e.BuildSources(ctx, matches)
	messages := []ai.ChatMessage{e.SystemPreamble(sources)}
	messages = append(messages, ai.ChatMessage{Role: string(model.RoleUser), Content: text})

	return e.generate(ctx, messages, Attributions(sources))
}

// QueryWithMemory implements §4.7's query_with_memory(project_id, text,
// conversation_id).
func (e *Engine) QueryWithMemory(ctx context.Context, projectID, text, conversationID string) (*Response, error) {
	handle, err := e.RequireCollection(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var memItems []memory.Item
	if e.memory != nil && conversationID != "" {
		memItems, err = e.memory.Build(ctx, conversationID)
		if err != nil {
			return nil, err
		}
	}

	matches, err := e.Retrieve(ctx, handle, text)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		messages := toChatMessages(memItems)
		messages = append(messages, ai.ChatMessage{Role: string(model.RoleUser), Content: text})
		return e.generate(ctx, messages, nil)
	}

	sources := e.BuildSources(ctx, matches)
	messages := []ai.ChatMessage{e.SystemPreamble(sources)}
	messages = append(messages, toChatMessages(memItems)...)
	messages = append(messages, ai.ChatMessage{Role: string(model.RoleUser), Content: text})
	return e.generate(ctx, messages, Attributions(sources))
}

// EducationalQuery implements §4.7's educational_query: it rewrites text
// with a fixed Portuguese prefix by type, then dispatches to
// QueryWithMemory when a conversation is present, else Query.
func (e *Engine) EducationalQuery(ctx context.Context, projectID, text string, queryType EducationalQueryType, conversationID string) (*Response, error) {
	rewritten := text
	if prefix, ok := educationalPrefixes[queryType]; ok {
		rewritten = prefix + text
	}
	if conversationID != "" {
		return e.QueryWithMemory(ctx, projectID, rewritten, conversationID)
	}
	return e.Query(ctx, projectID, rewritten)
}

// Chat exposes the engine's chat model so the Streaming Session can drive
// the token-level Stream variant of the same model a non-streaming query
// would use.
func (e *Engine) Chat() ai.IChatModel { return e.chat }

// Memory exposes the engine's memory manager, or nil if none was wired.
func (e *Engine) Memory() *memory.Manager { return e.memory }

func (e *Engine) RequireCollection(ctx context.Context, projectID string) (string, error) {
	project, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return "", err
	}
	if !project.HasCollection() {
		return "", coreerrors.ErrNotIndexed
	}
	return project.CollectionHandle, nil
}

// Retrieve embeds text and searches handle in one step. The Streaming
// Session instead calls EmbedQuery and Search separately so it can emit a
// status event between the two stages (§4.8).
func (e *Engine) Retrieve(ctx context.Context, handle, text string) ([]vectorstore.Match, error) {
	vector, err := e.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return e.Search(ctx, handle, vector)
}

func (e *Engine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.EmbedQuery(ctx, text)
}

func (e *Engine) Search(ctx context.Context, handle string, vector []float32) ([]vectorstore.Match, error) {
	return e.gateway.Search(ctx, handle, vector, e.cfg.MaxChunks, float32(e.cfg.SimilarityThreshold))
}

// SourceChunk carries a retrieved chunk's full content alongside its
// source attribution. RetrievedChunk only keeps a 200-char preview, which
// is what §4.7 step 7's persisted/returned source list wants, but that
// preview is too short to ground the step 5 prompt the model actually
// reads.
type SourceChunk struct {
	model.RetrievedChunk
	FullContent string
}

// Attributions strips SourceChunk down to the RetrievedChunk shape a
// Response or persisted Message carries.
func Attributions(sources []SourceChunk) []model.RetrievedChunk {
	out := make([]model.RetrievedChunk, len(sources))
	for i, source := range sources {
		out[i] = source.RetrievedChunk
	}
	return out
}

// BuildSources implements §4.7 step 7: the source list, in retrieval
// order, with each chunk's full content (for the prompt) plus a
// 200-character preview and the filename resolved from the document repo
// (the vector store payload carries document_id, not filename).
func (e *Engine) BuildSources(ctx context.Context, matches []vectorstore.Match) []SourceChunk {
	filenames := map[string]string{}
	sources := make([]SourceChunk, 0, len(matches))
	for _, match := range matches {
		filename, ok := filenames[match.DocumentID]
		if !ok {
			filename = e.lookupFilename(ctx, match.DocumentID)
			filenames[match.DocumentID] = filename
		}
		sources = append(sources, SourceChunk{
			RetrievedChunk: model.RetrievedChunk{
				DocumentID:     match.DocumentID,
				Filename:       filename,
				ContentPreview: preview(match.Content),
				Score:          match.Score,
				ChunkIndex:     match.ChunkIndex,
			},
			FullContent: match.Content,
		})
	}
	return sources
}

func (e *Engine) lookupFilename(ctx context.Context, documentID string) string {
	doc, err := e.documents.Get(ctx, documentID)
	if err != nil {
		return ""
	}
	return doc.OriginalName
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= 200 {
		return content
	}
	return string(runes[:200]) + "…"
}

// SystemPreamble implements §4.7 step 5: a role preamble followed by the
// numbered context documents in rank order, each carrying its full
// retrieved content rather than the 200-char attribution preview.
func (e *Engine) SystemPreamble(sources []SourceChunk) ai.ChatMessage {
	var sb strings.Builder
	sb.WriteString("You are a helpful study assistant. Answer the user's question using only the information in the context documents below. If the context does not contain the answer, say so plainly.\n\n")
	sb.WriteString("Context Documents:\n")
	for i, source := range sources {
		sb.WriteString("--- Document ")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(" ---\n")
		sb.WriteString(source.FullContent)
		sb.WriteString("\n")
	}
	return ai.ChatMessage{Role: string(model.RoleSystem), Content: sb.String()}
}

func (e *Engine) generate(ctx context.Context, messages []ai.ChatMessage, sources []model.RetrievedChunk) (*Response, error) {
	if e.chat == nil {
		return nil, coreerrors.ErrModelReturnedEmpty
	}
	answer, usage, err := e.chat.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}
	if answer == "" {
		return nil, coreerrors.ErrModelReturnedEmpty
	}
	logutil.GetLogger(ctx).Debug("rag query answered", zap.Int("sources", len(sources)), zap.Int("tokens_used", usage.TotalTokens))
	return &Response{Answer: answer, Sources: sources, TokensUsed: usage.TotalTokens}, nil
}

func toChatMessages(items []memory.Item) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(items))
	for _, item := range items {
		messages = append(messages, ai.ChatMessage{Role: string(item.Role), Content: item.Content})
	}
	return messages
}
