package model

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Conversation struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Ctime     int64  `json:"ctime"`
	Mtime     int64  `json:"mtime"`
}

// MessageMetadata captures token usage and retrieval sources for assistant
// messages; it is opaque JSON for user messages.
type MessageMetadata struct {
	TokensUsed int              `json:"tokens_used,omitempty"`
	Sources    []RetrievedChunk `json:"sources,omitempty"`
}

type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Metadata       MessageMetadata `json:"metadata,omitempty"`
	Ctime          int64           `json:"ctime"`
}

// RetrievedChunk is the source-attribution shape returned alongside a RAG
// answer: a preview of the chunk that grounded the response.
type RetrievedChunk struct {
	DocumentID      string  `json:"document_id"`
	Filename        string  `json:"filename"`
	ContentPreview  string  `json:"content_preview"`
	Score           float32 `json:"score"`
	ChunkIndex      int     `json:"chunk_index"`
}
