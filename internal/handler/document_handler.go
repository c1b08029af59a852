package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xxxsen/ragcore/internal/filestore"
	"github.com/xxxsen/ragcore/internal/ingestion"
	"github.com/xxxsen/ragcore/internal/model"
	appErr "github.com/xxxsen/ragcore/internal/pkg/errcode"
	"github.com/xxxsen/ragcore/internal/pkg/response"
	"github.com/xxxsen/ragcore/internal/repo"
)

type DocumentHandler struct {
	documents   *repo.DocumentRepo
	projects    *ProjectHandler
	store       filestore.Store
	coordinator *ingestion.Coordinator
}

func NewDocumentHandler(documents *repo.DocumentRepo, projects *ProjectHandler, store filestore.Store, coordinator *ingestion.Coordinator) *DocumentHandler {
	return &DocumentHandler{documents: documents, projects: projects, store: store, coordinator: coordinator}
}

// Upload implements the upload half of the ingest(document_id) collaborator
// contract: it stores the raw bytes and creates the Document row, but does
// not itself run the pipeline — the caller follows up with Ingest, the same
// two-step shape the teacher's FileHandler.Upload/DocumentHandler.Create
// split between storing bytes and recording metadata.
func (h *DocumentHandler) Upload(c *gin.Context) {
	project, err := h.projects.loadOwned(c)
	if err != nil {
		handleError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErr.ErrInvalidFile, "file is required")
		return
	}
	opened, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErr.ErrInvalidFile, "failed to open file")
		return
	}
	reader, contentType, err := ensureReadSeekCloser(opened)
	if err != nil {
		response.Error(c, appErr.ErrInvalidFile, "failed to read file")
		return
	}
	defer reader.Close()

	now := time.Now().Unix()
	doc := &model.Document{
		ID:           uuid.NewString(),
		ProjectID:    project.ID,
		Filename:     buildDocumentKey(project.ID, fileHeader.Filename),
		OriginalName: fileHeader.Filename,
		MimeType:     contentType,
		ByteSize:     fileHeader.Size,
		Ctime:        now,
		Mtime:        now,
	}
	doc.StorageKey = doc.Filename
	if err := h.store.Save(c.Request.Context(), doc.StorageKey, reader, fileHeader.Size); err != nil {
		response.Error(c, appErr.ErrUploadFailed, "failed to store file")
		return
	}
	if err := h.documents.Create(c.Request.Context(), doc); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	project, err := h.projects.loadOwned(c)
	if err != nil {
		handleError(c, err)
		return
	}
	docs, err := h.documents.ListByProject(c.Request.Context(), project.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.loadOwnedDocument(c)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	doc, err := h.loadOwnedDocument(c)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.coordinator.Delete(c.Request.Context(), doc.ID); err != nil {
		handleError(c, err)
		return
	}
	if err := h.documents.Delete(c.Request.Context(), doc.ID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// Ingest triggers §4.5's ingest(document_id) synchronously; the request
// blocks for the duration of loading, splitting, embedding, and upserting.
func (h *DocumentHandler) Ingest(c *gin.Context) {
	doc, err := h.loadOwnedDocument(c)
	if err != nil {
		handleError(c, err)
		return
	}
	result, err := h.coordinator.Ingest(c.Request.Context(), doc.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DocumentHandler) Reingest(c *gin.Context) {
	doc, err := h.loadOwnedDocument(c)
	if err != nil {
		handleError(c, err)
		return
	}
	result, err := h.coordinator.Reingest(c.Request.Context(), doc.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DocumentHandler) loadOwnedDocument(c *gin.Context) (*model.Document, error) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("docID"))
	if err != nil {
		return nil, err
	}
	if _, err := h.projects.loadProjectByID(c, doc.ProjectID); err != nil {
		return nil, err
	}
	return doc, nil
}

func ensureReadSeekCloser(file filestore.ReadSeekCloser) (filestore.ReadSeekCloser, string, error) {
	buf := make([]byte, 512)
	read, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	contentType := http.DetectContentType(buf[:read])
	if _, err := file.Seek(0, 0); err != nil {
		return nil, "", err
	}
	return file, contentType, nil
}

func buildDocumentKey(projectID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return projectID + "/" + uuid.NewString() + ext
}
