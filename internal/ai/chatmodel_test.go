package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChatProvider struct {
	text  string
	err   error
}

func (f *fakeChatProvider) Name() string { return "fake" }

func (f *fakeChatProvider) Generate(ctx context.Context, model string, messages []ChatMessage) (string, Usage, error) {
	if f.err != nil {
		return "", Usage{}, f.err
	}
	return f.text, Usage{TotalTokens: 10}, nil
}

func (f *fakeChatProvider) Stream(ctx context.Context, model string, messages []ChatMessage) (<-chan StreamToken, error) {
	ch := make(chan StreamToken, 1)
	close(ch)
	return ch, f.err
}

func TestChatModelGenerateEmptyFails(t *testing.T) {
	m := NewChatModel(&fakeChatProvider{text: "   "}, "fake-model")
	_, _, err := m.Generate(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	require.Error(t, err)
}

func TestChatModelGenerateSuccess(t *testing.T) {
	m := NewChatModel(&fakeChatProvider{text: "hello there"}, "fake-model")
	text, usage, err := m.Generate(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	require.Equal(t, "hello there", text)
	require.Equal(t, 10, usage.TotalTokens)
}
