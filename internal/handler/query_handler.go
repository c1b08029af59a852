package handler

import (
	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/ragcore/internal/pkg/errcode"
	"github.com/xxxsen/ragcore/internal/pkg/response"
	"github.com/xxxsen/ragcore/internal/rag"
	"github.com/xxxsen/ragcore/internal/repo"
)

type QueryHandler struct {
	engine        *rag.Engine
	projects      *ProjectHandler
	conversations *repo.ConversationRepo
}

func NewQueryHandler(engine *rag.Engine, projects *ProjectHandler, conversations *repo.ConversationRepo) *QueryHandler {
	return &QueryHandler{engine: engine, projects: projects, conversations: conversations}
}

type queryRequest struct {
	ProjectID      string `json:"project_id"`
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Query implements §4.7's stateless query(project_id, text).
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" || req.Text == "" {
		response.Error(c, appErr.ErrInvalid, "project_id and text are required")
		return
	}
	if _, err := h.projects.loadProjectByID(c, req.ProjectID); err != nil {
		handleError(c, err)
		return
	}
	result, err := h.engine.Query(c.Request.Context(), req.ProjectID, req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// QueryWithMemory implements the conversation-scoped variant of query,
// folding the Memory Manager's output into the same prompt assembly.
func (h *QueryHandler) QueryWithMemory(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" || req.Text == "" || req.ConversationID == "" {
		response.Error(c, appErr.ErrInvalid, "project_id, text and conversation_id are required")
		return
	}
	if _, err := h.projects.loadProjectByID(c, req.ProjectID); err != nil {
		handleError(c, err)
		return
	}
	result, err := h.engine.QueryWithMemory(c.Request.Context(), req.ProjectID, req.Text, req.ConversationID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

type educationalQueryRequest struct {
	ProjectID      string `json:"project_id"`
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id,omitempty"`
	QueryType      string `json:"query_type"`
}

// Educational implements the four fixed rewrite prefixes of §4.7 step 1
// (question/summary/quiz/explanation) ahead of dispatching to Query or
// QueryWithMemory.
func (h *QueryHandler) Educational(c *gin.Context) {
	var req educationalQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" || req.Text == "" || req.QueryType == "" {
		response.Error(c, appErr.ErrInvalid, "project_id, text and query_type are required")
		return
	}
	if _, err := h.projects.loadProjectByID(c, req.ProjectID); err != nil {
		handleError(c, err)
		return
	}
	result, err := h.engine.EducationalQuery(c.Request.Context(), req.ProjectID, req.Text, rag.EducationalQueryType(req.QueryType), req.ConversationID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *QueryHandler) ListConversations(c *gin.Context) {
	project, err := h.projects.loadOwned(c)
	if err != nil {
		handleError(c, err)
		return
	}
	conversations, err := h.conversations.ListByProject(c.Request.Context(), project.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, conversations)
}
