package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/memory"
	"github.com/xxxsen/ragcore/internal/model"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"github.com/xxxsen/ragcore/internal/rag"
	"github.com/xxxsen/ragcore/internal/repo"
)

// idGenerator is swappable so tests can produce deterministic ids; the
// default is uuid.NewString via New.
type idGenerator func() string

// Session drives one Streaming Session (§4.8): a single `start` request,
// end to end, emitting progress and content events on Events as it goes.
// A Session is used once and discarded.
type Session struct {
	engine        *rag.Engine
	conversations *repo.ConversationRepo
	messages      *repo.MessageRepo
	ownership     OwnershipChecker
	newID         idGenerator

	Events chan Event
}

func New(engine *rag.Engine, conversations *repo.ConversationRepo, messages *repo.MessageRepo, ownership OwnershipChecker, newID func() string) *Session {
	return &Session{
		engine:        engine,
		conversations: conversations,
		messages:      messages,
		ownership:     ownership,
		newID:         newID,
		// Buffer one model chunk worth of tokens per §5's backpressure
		// policy; a second unconsumed chunk means the client is too slow
		// and the stream aborts with error{slow_consumer}.
		Events: make(chan Event, 1),
	}
}

// Start implements the §4.8 `start` flow. It runs until the request
// completes, fails, or ctx is cancelled (a client disconnect), and always
// closes s.Events before returning. On cancellation, no assistant message
// is persisted.
func (s *Session) Start(ctx context.Context, userID string, req StartRequest) {
	defer close(s.Events)

	s.emit(statusEvent(StageValidating))
	owns, err := s.ownership.Owns(ctx, userID, req.ProjectID)
	if err != nil {
		s.emitError(err)
		return
	}
	if !owns {
		s.emitError(coreerrors.ErrForbidden)
		return
	}
	if ctx.Err() != nil {
		return
	}

	s.emit(statusEvent(StageConversation))
	conversationID := req.ConversationID
	if conversationID == "" {
		conv := &model.Conversation{
			ID:        s.newID(),
			ProjectID: req.ProjectID,
			Title:     conversationTitle(req.Message),
		}
		if err := s.conversations.Create(ctx, conv); err != nil {
			s.emitError(err)
			return
		}
		conversationID = conv.ID
		s.emit(Event{Type: EventConversationCreated, ConversationID: conv.ID, Title: conv.Title})
	}

	userMessage := &model.Message{
		ID:             s.newID(),
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        req.Message,
	}
	if err := s.messages.Create(ctx, userMessage); err != nil {
		s.emitError(err)
		return
	}
	s.emit(Event{Type: EventUserMessage, ConversationID: conversationID, Role: model.RoleUser, Content: req.Message, MessageID: userMessage.ID})
	if ctx.Err() != nil {
		return
	}

	s.emit(statusEvent(StageMemory))
	var memItems []memory.Item
	if mgr := s.engine.Memory(); mgr != nil {
		memItems, err = mgr.Build(ctx, conversationID)
		if err != nil {
			s.emitError(err)
			return
		}
	}

	handle, err := s.engine.RequireCollection(ctx, req.ProjectID)
	if err != nil {
		s.emitError(err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	s.emit(statusEvent(StageEmbedding))
	vector, err := s.engine.EmbedQuery(ctx, req.Message)
	if err != nil {
		s.emitError(err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	s.emit(statusEvent(StageSearch))
	matches, err := s.engine.Search(ctx, handle, vector)
	if err != nil {
		s.emitError(err)
		return
	}
	var sourceChunks []rag.SourceChunk
	if len(matches) > 0 {
		sourceChunks = s.engine.BuildSources(ctx, matches)
	}
	sources := rag.Attributions(sourceChunks)
	if ctx.Err() != nil {
		return
	}

	s.emit(statusEvent(StageGenerating))
	s.emit(Event{Type: EventStreamStart, Sources: sources})

	messages := s.buildChatMessages(sourceChunks, memItems, req.Message)
	chat := s.engine.Chat()
	if chat == nil {
		s.emitError(coreerrors.ErrModelReturnedEmpty)
		return
	}
	tokens, err := chat.Stream(ctx, messages)
	if err != nil {
		s.emitError(err)
		return
	}

	var full string
	for token := range tokens {
		if token.Err != nil {
			s.emitError(token.Err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		if token.Done {
			break
		}
		full += token.Content
		if !s.trySend(Event{Type: EventStreamChunk, Content: token.Content, FullContent: full}) {
			s.emitError(coreerrors.ErrSlowConsumer)
			return
		}
	}
	if full == "" {
		s.emitError(coreerrors.ErrModelReturnedEmpty)
		return
	}

	s.emit(statusEvent(StageSaving))
	assistantMessage := &model.Message{
		ID:             s.newID(),
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		Content:        full,
		Metadata: model.MessageMetadata{
			TokensUsed: memory.EstimateTokens(full),
			Sources:    sources,
		},
		Ctime: time.Now().Unix(),
	}
	if err := s.messages.Create(ctx, assistantMessage); err != nil {
		s.emitError(err)
		return
	}
	if err := s.conversations.Touch(ctx, conversationID, assistantMessage.Ctime); err != nil {
		logutil.GetLogger(ctx).Warn("failed to touch conversation", zap.String("conversation_id", conversationID), zap.Error(err))
	}

	s.emit(Event{
		Type:           EventStreamComplete,
		ConversationID: conversationID,
		MessageID:      assistantMessage.ID,
		Content:        full,
		TokensUsed:      assistantMessage.Metadata.TokensUsed,
		Sources:        sources,
	})
	s.emit(statusEvent(StageCompleted))
}

func (s *Session) buildChatMessages(sources []rag.SourceChunk, memItems []memory.Item, userText string) []ai.ChatMessage {
	var messages []ai.ChatMessage
	if len(sources) > 0 {
		messages = append(messages, s.engine.SystemPreamble(sources))
	}
	for _, item := range memItems {
		messages = append(messages, ai.ChatMessage{Role: string(item.Role), Content: item.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: string(model.RoleUser), Content: userText})
	return messages
}

func (s *Session) emit(ev Event) {
	s.Events <- ev
}

// trySend delivers a stream_chunk event without blocking; it reports
// false when the one-chunk buffer is already full, signalling a slow
// consumer per §5's backpressure policy.
func (s *Session) trySend(ev Event) bool {
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) emitError(err error) {
	s.Events <- Event{Type: EventError, Message: err.Error()}
}

// conversationTitle implements §4.8 step 2's fixed title format.
func conversationTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= 50 {
		return fmt.Sprintf("Chat: %s", message)
	}
	return fmt.Sprintf("Chat: %s...", string(runes[:50]))
}
