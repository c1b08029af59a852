package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiChatProvider struct {
	apiKey string
}

func (p *geminiChatProvider) Name() string { return "gemini" }

func (p *geminiChatProvider) Generate(ctx context.Context, model string, messages []ChatMessage) (string, Usage, error) {
	if p.apiKey == "" {
		return "", Usage{}, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return "", Usage{}, err
	}
	resp, err := client.Models.GenerateContent(ctx, model, toGeminiContents(messages), nil)
	if err != nil {
		return "", Usage{}, err
	}
	usage := Usage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return strings.TrimSpace(resp.Text()), usage, nil
}

func (p *geminiChatProvider) Stream(ctx context.Context, model string, messages []ChatMessage) (<-chan StreamToken, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	out := make(chan StreamToken, 8)
	go func() {
		defer close(out)
		for chunk, err := range client.Models.GenerateContentStream(ctx, model, toGeminiContents(messages), nil) {
			if err != nil {
				select {
				case out <- StreamToken{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			text := chunk.Text()
			if text == "" {
				continue
			}
			select {
			case out <- StreamToken{Content: text}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- StreamToken{Done: true}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func toGeminiContents(messages []ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	return out
}

type geminiEmbedProvider struct {
	apiKey string
}

func (p *geminiEmbedProvider) Name() string { return "gemini" }

func (p *geminiEmbedProvider) Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: taskType}
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}
	resp, err := client.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

func createGeminiChatFactory(args interface{}) (IChatProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiChatProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiEmbedProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func init() {
	Register("gemini", createGeminiChatFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}
