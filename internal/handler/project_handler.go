package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xxxsen/ragcore/internal/model"
	appErr "github.com/xxxsen/ragcore/internal/pkg/errcode"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"github.com/xxxsen/ragcore/internal/repo"
	"github.com/xxxsen/ragcore/internal/pkg/response"
)

type ProjectHandler struct {
	projects *repo.ProjectRepo
}

func NewProjectHandler(projects *repo.ProjectRepo) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		response.Error(c, appErr.ErrInvalid, "name is required")
		return
	}
	now := time.Now().Unix()
	project := &model.Project{
		ID:          uuid.NewString(),
		OwnerID:     getUserID(c),
		Name:        req.Name,
		Description: req.Description,
		Ctime:       now,
		Mtime:       now,
	}
	if err := h.projects.Create(c.Request.Context(), project); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, project)
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.ListByOwner(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, projects)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.loadOwned(c)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, project)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	project, err := h.loadOwned(c)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.projects.Delete(c.Request.Context(), project.ID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// loadOwned fetches the :id project and rejects it with ErrForbidden when
// it belongs to a different owner, the same ownership check every other
// project-scoped handler in this package needs before touching a document,
// conversation, or generated file under it.
func (h *ProjectHandler) loadOwned(c *gin.Context) (*model.Project, error) {
	return h.loadProjectByID(c, c.Param("id"))
}

// loadProjectByID is loadOwned's building block for handlers that reach a
// project indirectly (a document, conversation, or generated file carries
// the project id itself; the route param names the child resource, not the
// project).
func (h *ProjectHandler) loadProjectByID(c *gin.Context, projectID string) (*model.Project, error) {
	project, err := h.projects.Get(c.Request.Context(), projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != getUserID(c) {
		return nil, coreerrors.ErrForbidden
	}
	return project, nil
}
