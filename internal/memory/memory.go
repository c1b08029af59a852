package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/repo"
)

// Item is one (role, content) entry in the LLM-ready message list the
// Memory Manager produces (§4.6 output format).
type Item struct {
	Role    model.Role
	Content string
}

// Config carries the §4.6 defaults.
type Config struct {
	MaxTokens        int
	MaxMessages      int
	SummaryThreshold int
	EntityThreshold  int
}

func DefaultConfig() Config {
	return Config{MaxTokens: 1500, MaxMessages: 20, SummaryThreshold: 10, EntityThreshold: 2}
}

// Manager implements the Memory Manager of §4.6.
type Manager struct {
	messages *repo.MessageRepo
	chat     ai.IChatModel
	cfg      Config
	summaries *expirable.LRU[string, string]
}

// New wires a Memory Manager. chat may be nil, in which case hybrid mode
// always falls back to buffer mode (summarization unavailable).
func New(messages *repo.MessageRepo, chat ai.IChatModel, cfg Config) *Manager {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 20
	}
	if cfg.SummaryThreshold <= 0 {
		cfg.SummaryThreshold = 10
	}
	if cfg.EntityThreshold <= 0 {
		cfg.EntityThreshold = 2
	}
	return &Manager{
		messages:  messages,
		chat:      chat,
		cfg:       cfg,
		summaries: expirable.NewLRU[string, string](256, nil, 10*time.Minute),
	}
}

// EstimateTokens implements §4.6's "1 token ≈ 4 characters (ceil)"; it is
// exported so other packages that report approximate token usage (the
// Streaming Session's stream_complete event) use the same rule.
func EstimateTokens(s string) int {
	return estimateTokens(s)
}

func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4))
}

// Build produces the message list for conversationID per §4.6.
func (m *Manager) Build(ctx context.Context, conversationID string) ([]Item, error) {
	msgs, err := m.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return m.build(ctx, conversationID, msgs), nil
}

func (m *Manager) build(ctx context.Context, conversationID string, msgs []*model.Message) []Item {
	note := m.entityNote(ctx, msgs)
	budget := m.cfg.MaxTokens
	if note != "" {
		budget -= estimateTokens(note)
		if budget < 0 {
			budget = 0
		}
	}

	total := 0
	for _, msg := range msgs {
		total += estimateTokens(msg.Content)
	}

	var items []Item
	if len(msgs) <= m.cfg.SummaryThreshold && total <= budget {
		items = m.bufferMemory(msgs, budget)
	} else {
		items = m.hybridMemory(ctx, conversationID, msgs, budget)
	}

	if note != "" {
		items = append([]Item{{Role: model.RoleSystem, Content: note}}, items...)
	}
	return items
}

// bufferMemory includes the trailing suffix of messages that fits inside
// budget, which the caller has already reduced by the entity note's own
// estimated tokens.
func (m *Manager) bufferMemory(msgs []*model.Message, budget int) []Item {
	var selected []*model.Message
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := estimateTokens(msgs[i].Content)
		if cost > budget {
			break
		}
		selected = append(selected, msgs[i])
		budget -= cost
		if budget <= 0 {
			break
		}
	}
	reverse(selected)
	return toItems(selected)
}

// hybridMemory separates the oldest messages into a summary pool,
// summarizes them, and fills the remaining budget with the most recent
// messages. budget already excludes the entity note's estimated tokens.
func (m *Manager) hybridMemory(ctx context.Context, conversationID string, msgs []*model.Message, budget int) []Item {
	cut := len(msgs) - m.cfg.MaxMessages
	if cut < 0 {
		cut = 0
	}
	pool := msgs[:cut]
	recent := msgs[cut:]

	var items []Item

	if len(pool) > 0 {
		summary := m.summarize(ctx, conversationID, pool)
		if summary != "" {
			note := "Previous conversation summary: " + summary
			items = append(items, Item{Role: model.RoleSystem, Content: note})
			budget -= estimateTokens(note)
		}
	}

	var selected []*model.Message
	for i := len(recent) - 1; i >= 0; i-- {
		cost := estimateTokens(recent[i].Content)
		if cost > budget {
			break
		}
		selected = append(selected, recent[i])
		budget -= cost
		if budget <= 0 {
			break
		}
	}
	reverse(selected)
	items = append(items, toItems(selected)...)
	return items
}

// summarize generates a ≤~200 word summary of the pool, caching by
// (conversation_id, message_count) and invalidating whenever the message
// count changes. A summarization failure falls back to buffer memory
// silently (§4.6 cancellation policy) by returning "".
func (m *Manager) summarize(ctx context.Context, conversationID string, pool []*model.Message) string {
	cacheKey := fmt.Sprintf("%s:%d", conversationID, len(pool))
	if cached, ok := m.summaries.Get(cacheKey); ok {
		return cached
	}
	if m.chat == nil {
		return ""
	}

	var transcript strings.Builder
	for _, msg := range pool {
		transcript.WriteString(string(msg.Role))
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}

	prompt := []ai.ChatMessage{
		{Role: "system", Content: "Summarize the following conversation in 200 words or fewer, preserving the key facts and decisions."},
		{Role: "user", Content: transcript.String()},
	}
	text, _, err := m.chat.Generate(ctx, prompt)
	if err != nil {
		logutil.GetLogger(ctx).Warn("memory summary generation failed, falling back to buffer memory", zap.Error(err))
		return ""
	}
	m.summaries.Add(cacheKey, text)
	return text
}

func toItems(msgs []*model.Message) []Item {
	items := make([]Item, 0, len(msgs))
	for _, msg := range msgs {
		role := msg.Role
		if role != model.RoleUser && role != model.RoleAssistant {
			role = model.RoleUser
		}
		items = append(items, Item{Role: role, Content: msg.Content})
	}
	return items
}

func reverse(msgs []*model.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

var stopWords = buildStopWords()

func buildStopWords() map[string]struct{} {
	words := []string{
		// English function words
		"the", "and", "that", "have", "for", "not", "with", "you", "this",
		"but", "his", "her", "they", "from", "she", "will", "would", "there",
		"their", "what", "about", "which", "when", "make", "like", "time",
		"just", "know", "take", "into", "your", "some", "could", "them",
		"than", "then", "these", "also", "only", "over", "such", "being",
		"both", "very", "more", "been", "were", "each", "other", "because",
		// Portuguese function words
		"para", "como", "mais", "muito", "quando", "qual", "essa", "esse",
		"esta", "este", "isso", "isto", "sobre", "entre", "pela", "pelo",
		"pelos", "pelas", "como", "mesmo", "ainda", "depois", "antes",
		"onde", "porque", "porém", "também", "sempre", "nunca", "todos",
		"todas", "cada", "alguma", "algum",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

type entityKind string

const (
	entityKindDocument entityKind = "document"
	entityKindConcept  entityKind = "concept"
	entityKindTopic    entityKind = "topic"
)

// entityNote implements the entity-extraction half of §4.6: tokenize,
// drop stop words and short/numeric tokens, count frequencies, classify,
// and format the top five as a system note.
func (m *Manager) entityNote(ctx context.Context, msgs []*model.Message) string {
	freq := map[string]int{}
	for _, msg := range msgs {
		for _, token := range tokenize(msg.Content) {
			if len(token) < 4 || isNumeric(token) {
				continue
			}
			if _, stop := stopWords[token]; stop {
				continue
			}
			freq[token]++
		}
	}

	type entity struct {
		word  string
		count int
	}
	var entities []entity
	for word, count := range freq {
		if count >= m.cfg.EntityThreshold {
			entities = append(entities, entity{word, count})
		}
	}
	if len(entities) == 0 {
		return ""
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].count != entities[j].count {
			return entities[i].count > entities[j].count
		}
		return entities[i].word < entities[j].word
	})
	if len(entities) > 5 {
		entities = entities[:5]
	}
	words := make([]string, len(entities))
	for i, e := range entities {
		words[i] = e.word
		logutil.GetLogger(ctx).Debug("entity classified",
			zap.String("word", e.word), zap.String("kind", string(classifyEntity(e.word))))
	}
	return "Key topics in this conversation: " + strings.Join(words, ", ")
}

func classifyEntity(word string) entityKind {
	switch {
	case strings.Contains(word, "doc"), strings.Contains(word, "pdf"), strings.Contains(word, "arquivo"):
		return entityKindDocument
	case strings.HasSuffix(word, "ção"), strings.HasSuffix(word, "mento"), strings.Contains(word, "conceito"):
		return entityKindConcept
	default:
		return entityKindTopic
	}
}

func tokenize(content string) []string {
	content = strings.ToLower(content)
	var tokens []string
	var current strings.Builder
	for _, r := range content {
		if isWordRune(r) {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == 'á' || r == 'ã' || r == 'â' ||
		r == 'à' || r == 'é' || r == 'ê' || r == 'í' || r == 'ó' || r == 'õ' || r == 'ô' || r == 'ú' || r == 'ç'
}

func isNumeric(token string) bool {
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
