package ai

import (
	"context"
	"strings"

	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
)

// IChatModel is the chat-completion contract consumed by the RAG Query
// Engine, the Memory Manager's summarizer, and the File Generator.
type IChatModel interface {
	Generate(ctx context.Context, messages []ChatMessage) (string, Usage, error)
	Stream(ctx context.Context, messages []ChatMessage) (<-chan StreamToken, error)
	ModelName() string
}

type providerChatModel struct {
	provider     IChatProvider
	model        string
	syncRetry    RetryConfig
	streamRetry  RetryConfig
}

func NewChatModel(provider IChatProvider, model string) IChatModel {
	return &providerChatModel{provider: provider, model: model, syncRetry: DefaultChatSyncRetry(), streamRetry: DefaultChatRetry()}
}

func (c *providerChatModel) Generate(ctx context.Context, messages []ChatMessage) (string, Usage, error) {
	if c.provider == nil {
		return "", Usage{}, coreerrors.ErrModelReturnedEmpty
	}
	var (
		text  string
		usage Usage
	)
	err := withRetry(ctx, c.syncRetry, "chat_generate", func() error {
		t, u, err := c.provider.Generate(ctx, c.model, messages)
		if err != nil {
			return err
		}
		text, usage = t, u
		return nil
	})
	if err != nil {
		return "", Usage{}, err
	}
	if strings.TrimSpace(text) == "" {
		return "", Usage{}, coreerrors.ErrModelReturnedEmpty
	}
	return text, usage, nil
}

// Stream attempts the provider's stream twice (§5 "chat model streaming
// path uses 2 attempts") before giving up; mid-stream failures are not
// retried since partial output would duplicate on retry.
func (c *providerChatModel) Stream(ctx context.Context, messages []ChatMessage) (<-chan StreamToken, error) {
	if c.provider == nil {
		return nil, coreerrors.ErrModelReturnedEmpty
	}
	var (
		ch  <-chan StreamToken
		err error
	)
	attempts := c.streamRetry.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		ch, err = c.provider.Stream(ctx, c.model, messages)
		if err == nil {
			return ch, nil
		}
	}
	return nil, err
}

func (c *providerChatModel) ModelName() string { return c.model }
