package handler

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/ragcore/internal/filegen"
	"github.com/xxxsen/ragcore/internal/model"
	appErr "github.com/xxxsen/ragcore/internal/pkg/errcode"
	"github.com/xxxsen/ragcore/internal/pkg/response"
)

type FileGenHandler struct {
	generator *filegen.Generator
	projects  *ProjectHandler
}

func NewFileGenHandler(generator *filegen.Generator, projects *ProjectHandler) *FileGenHandler {
	return &FileGenHandler{generator: generator, projects: projects}
}

type createFileRequest struct {
	ProjectID   string `json:"project_id"`
	Prompt      string `json:"prompt"`
	DisplayName string `json:"display_name"`
	FileType    string `json:"file_type"`
	Format      string `json:"format"`
}

// Create implements §4.9's create_file. A request against a display name
// that already has a file under the project delegates to NewVersion inside
// Generator.CreateFile itself; this handler never needs to know which path
// ran.
func (h *FileGenHandler) Create(c *gin.Context) {
	var req createFileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" || req.Prompt == "" || req.DisplayName == "" {
		response.Error(c, appErr.ErrInvalid, "project_id, prompt and display_name are required")
		return
	}
	if _, err := h.projects.loadProjectByID(c, req.ProjectID); err != nil {
		handleError(c, err)
		return
	}
	file, err := h.generator.CreateFile(c.Request.Context(), filegen.CreateParams{
		ProjectID:   req.ProjectID,
		OwnerID:     getUserID(c),
		Prompt:      req.Prompt,
		DisplayName: req.DisplayName,
		FileType:    model.FileType(req.FileType),
		Format:      model.FileFormat(req.Format),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, file)
}

type newVersionRequest struct {
	EditPrompt  string `json:"edit_prompt"`
	BaseVersion int    `json:"base_version,omitempty"`
}

func (h *FileGenHandler) NewVersion(c *gin.Context) {
	var req newVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.EditPrompt == "" {
		response.Error(c, appErr.ErrInvalid, "edit_prompt is required")
		return
	}
	version, err := h.generator.NewVersion(c.Request.Context(), filegen.NewVersionParams{
		FileID:      c.Param("fileID"),
		EditPrompt:  req.EditPrompt,
		BaseVersion: req.BaseVersion,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}

func (h *FileGenHandler) Download(c *gin.Context) {
	version, _ := strconv.Atoi(c.Query("version"))
	data, filename, contentType, err := h.generator.Download(c.Request.Context(), c.Param("fileID"), version)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, contentType, data)
}

func (h *FileGenHandler) Delete(c *gin.Context) {
	if err := h.generator.Delete(c.Request.Context(), c.Param("fileID")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Progress streams the Generator's out-of-band progress events for the
// calling owner over SSE, the same transport the Streaming Session uses.
func (h *FileGenHandler) Progress(c *gin.Context) {
	ch, unsubscribe := h.generator.Progress().Subscribe(getUserID(c))
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			data, err := json.Marshal(ev)
			if err != nil {
				return false
			}
			c.SSEvent("message", string(data))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
