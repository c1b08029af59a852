package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned by a provider implementation when it is not
// configured (e.g. missing API key) rather than when the remote call fails.
var ErrUnavailable = errors.New("ai provider unavailable")

type ChatMessage struct {
	Role    string
	Content string
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type StreamToken struct {
	Content string
	Err     error
	Done    bool
}

// IChatProvider is the raw transport to a chat-completion backend. Providers
// register themselves by name in init() and are looked up by config.
type IChatProvider interface {
	Name() string
	Generate(ctx context.Context, model string, messages []ChatMessage) (string, Usage, error)
	Stream(ctx context.Context, model string, messages []ChatMessage) (<-chan StreamToken, error)
}

// IEmbedProvider is the raw transport to an embedding backend.
type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error)
}

type ChatProviderFactory func(args interface{}) (IChatProvider, error)
type EmbedProviderFactory func(args interface{}) (IEmbedProvider, error)

var (
	chatRegistry  = map[string]ChatProviderFactory{}
	embedRegistry = map[string]EmbedProviderFactory{}
)

func Register(name string, factory ChatProviderFactory) {
	key := normalizeProviderName(name)
	if key == "" || factory == nil {
		return
	}
	chatRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedProviderFactory) {
	key := normalizeProviderName(name)
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewChatProvider(name string, args interface{}) (IChatProvider, error) {
	key := normalizeProviderName(name)
	if key == "" {
		return nil, fmt.Errorf("ai.chat_provider is required")
	}
	factory := chatRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported chat provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := normalizeProviderName(name)
	if key == "" {
		return nil, fmt.Errorf("ai.embed_provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embed provider: %s", name)
	}
	return factory(args)
}

func normalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func decodeConfig(args interface{}, dst interface{}) error {
	return decodeJSON(args, dst)
}
