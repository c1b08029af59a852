package handler

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xxxsen/ragcore/internal/rag"
	"github.com/xxxsen/ragcore/internal/repo"
	appErr "github.com/xxxsen/ragcore/internal/pkg/errcode"
	"github.com/xxxsen/ragcore/internal/pkg/response"
	"github.com/xxxsen/ragcore/internal/stream"
)

type StreamHandler struct {
	engine        *rag.Engine
	conversations *repo.ConversationRepo
	messages      *repo.MessageRepo
	ownership     stream.OwnershipChecker
}

func NewStreamHandler(engine *rag.Engine, conversations *repo.ConversationRepo, messages *repo.MessageRepo, ownership stream.OwnershipChecker) *StreamHandler {
	return &StreamHandler{engine: engine, conversations: conversations, messages: messages, ownership: ownership}
}

// Start drives §4.8's Streaming Session over server-sent events: an
// EventSource client opens this as a plain GET, so the start request rides
// in the query string rather than a JSON body.
func (h *StreamHandler) Start(c *gin.Context) {
	req := stream.StartRequest{
		ProjectID:      c.Query("project_id"),
		Message:        c.Query("message"),
		ConversationID: c.Query("conversation_id"),
	}
	if req.ProjectID == "" || req.Message == "" {
		response.Error(c, appErr.ErrInvalid, "project_id and message are required")
		return
	}

	session := stream.New(h.engine, h.conversations, h.messages, h.ownership, uuid.NewString)
	ctx := c.Request.Context()
	go session.Start(ctx, getUserID(c), req)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-session.Events
		if !ok {
			return false
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return false
		}
		c.SSEvent("message", string(data))
		return true
	})
}
