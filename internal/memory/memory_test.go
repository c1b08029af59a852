package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/model"
)

type fakeChat struct {
	response string
	err      error
	calls    int
}

func (f *fakeChat) Generate(ctx context.Context, messages []ai.ChatMessage) (string, ai.Usage, error) {
	f.calls++
	if f.err != nil {
		return "", ai.Usage{}, f.err
	}
	return f.response, ai.Usage{}, nil
}

func (f *fakeChat) Stream(ctx context.Context, messages []ai.ChatMessage) (<-chan ai.StreamToken, error) {
	return nil, nil
}

func (f *fakeChat) ModelName() string { return "fake-chat" }

func buildMessages(n int) []*model.Message {
	msgs := make([]*model.Message, n)
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msgs[i] = &model.Message{
			ID:      fmt.Sprintf("m-%d", i),
			Role:    role,
			Content: fmt.Sprintf("message number %d about photosynthesis", i),
			Ctime:   int64(i),
		}
	}
	return msgs
}

func TestBufferMemoryUnderThreshold(t *testing.T) {
	mgr := New(nil, nil, DefaultConfig())
	msgs := buildMessages(5)
	items := mgr.build(context.Background(), "conv-1", msgs)
	require.Len(t, items, 6)
	require.Equal(t, model.RoleSystem, items[0].Role)
	require.Equal(t, model.RoleUser, items[1].Role)
}

func TestHybridMemorySummarizesOldMessages(t *testing.T) {
	chat := &fakeChat{response: "Short summary of the early conversation."}
	mgr := New(nil, chat, Config{MaxTokens: 200, MaxMessages: 5, SummaryThreshold: 10, EntityThreshold: 3})
	msgs := buildMessages(25)

	items := mgr.build(context.Background(), "conv-2", msgs)
	require.NotEmpty(t, items)
	require.Equal(t, model.RoleSystem, items[0].Role)
	require.Contains(t, items[0].Content, "Key topics in this conversation")

	var sawSummary bool
	for _, item := range items {
		if strings.Contains(item.Content, "Previous conversation summary") {
			sawSummary = true
		}
	}
	require.True(t, sawSummary)
	require.Equal(t, 1, chat.calls)

	totalTokens := 0
	for _, item := range items {
		totalTokens += estimateTokens(item.Content)
	}
	require.LessOrEqual(t, totalTokens, mgr.cfg.MaxTokens)
}

func TestHybridMemoryFallsBackToBufferOnSummaryFailure(t *testing.T) {
	chat := &fakeChat{err: fmt.Errorf("provider down")}
	mgr := New(nil, chat, Config{MaxTokens: 200, MaxMessages: 5, SummaryThreshold: 10, EntityThreshold: 100})
	msgs := buildMessages(25)

	items := mgr.build(context.Background(), "conv-3", msgs)
	for _, item := range items {
		require.NotContains(t, item.Content, "Previous conversation summary")
	}
}

func TestEntityNoteListsFrequentWords(t *testing.T) {
	mgr := New(nil, nil, Config{MaxTokens: 1500, MaxMessages: 20, SummaryThreshold: 10, EntityThreshold: 2})
	msgs := []*model.Message{
		{Role: model.RoleUser, Content: "photosynthesis photosynthesis requires sunlight sunlight"},
		{Role: model.RoleAssistant, Content: "photosynthesis also needs water water"},
	}
	note := mgr.entityNote(context.Background(), msgs)
	require.Contains(t, note, "Key topics in this conversation")
	require.Contains(t, note, "photosynthesis")
}

func TestClassifyEntity(t *testing.T) {
	require.Equal(t, entityKindDocument, classifyEntity("arquivo"))
	require.Equal(t, entityKindConcept, classifyEntity("organização"))
	require.Equal(t, entityKindTopic, classifyEntity("photosynthesis"))
}

func TestEstimateTokensRoundsUp(t *testing.T) {
	require.Equal(t, 0, estimateTokens(""))
	require.Equal(t, 1, estimateTokens("abc"))
	require.Equal(t, 2, estimateTokens("abcde"))
}
