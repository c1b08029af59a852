package stream

import "github.com/xxxsen/ragcore/internal/model"

// EventType enumerates the server-to-client frames of §4.8's event
// protocol. Every frame is a flat, self-describing Event; the client never
// needs state beyond the fields present on the event it receives.
type EventType string

const (
	EventStatus             EventType = "status"
	EventConversationCreated EventType = "conversation_created"
	EventUserMessage        EventType = "user_message"
	EventStreamStart        EventType = "stream_start"
	EventStreamChunk        EventType = "stream_chunk"
	EventStreamComplete     EventType = "stream_complete"
	EventError              EventType = "error"
)

// Stage enumerates the status{stage,...} values a session reports while
// handling one start request.
type Stage string

const (
	StageValidating  Stage = "validating"
	StageConversation Stage = "conversation"
	StageMemory      Stage = "memory"
	StageEmbedding   Stage = "embedding"
	StageSearch      Stage = "search"
	StageGenerating  Stage = "generating"
	StageSaving      Stage = "saving"
	StageCompleted   Stage = "completed"
)

// Event is the single wire shape for every server-to-client frame; unused
// fields are omitted from the JSON encoding.
type Event struct {
	Type           EventType               `json:"type"`
	Stage          Stage                   `json:"stage,omitempty"`
	Message        string                  `json:"message,omitempty"`
	ConversationID string                  `json:"conversation_id,omitempty"`
	Title          string                  `json:"title,omitempty"`
	MessageID      string                  `json:"message_id,omitempty"`
	Role           model.Role              `json:"role,omitempty"`
	Content        string                  `json:"content,omitempty"`
	FullContent    string                  `json:"full_content,omitempty"`
	TokensUsed     int                     `json:"tokens_used,omitempty"`
	Sources        []model.RetrievedChunk  `json:"sources,omitempty"`
}

func statusEvent(stage Stage) Event {
	return Event{Type: EventStatus, Stage: stage}
}

// StartRequest is the client→server `start` event of §4.8.
type StartRequest struct {
	ProjectID      string `json:"project_id"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}
