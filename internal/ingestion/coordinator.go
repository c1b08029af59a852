package ingestion

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ragcore/internal/ai"
	"github.com/xxxsen/ragcore/internal/filestore"
	"github.com/xxxsen/ragcore/internal/loader"
	"github.com/xxxsen/ragcore/internal/model"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
	"github.com/xxxsen/ragcore/internal/repo"
	"github.com/xxxsen/ragcore/internal/splitter"
	"github.com/xxxsen/ragcore/internal/vectorstore"
)

// Result is the outcome of one document's ingest, as returned by Ingest and
// collected per-document by IngestProject (§4.5).
type Result struct {
	DocumentID       string
	ChunksProcessed  int
	CollectionHandle string
	ProcessingTime   time.Duration
	Err              error
}

// Coordinator is the Ingestion Coordinator of §4.5: it brings a document
// from "uploaded" to "processed" and keeps that invariant under updates and
// reprocess requests.
type Coordinator struct {
	documents *repo.DocumentRepo
	projects  *repo.ProjectRepo
	store     filestore.Store
	loader    *loader.Loader
	splitter  *splitter.Splitter
	embedder  ai.IEmbedder
	gateway   vectorstore.Gateway

	docLocks     *keyedMutex
	projectLocks *keyedMutex
}

func New(
	documents *repo.DocumentRepo,
	projects *repo.ProjectRepo,
	store filestore.Store,
	ld *loader.Loader,
	sp *splitter.Splitter,
	embedder ai.IEmbedder,
	gateway vectorstore.Gateway,
) *Coordinator {
	return &Coordinator{
		documents:    documents,
		projects:     projects,
		store:        store,
		loader:       ld,
		splitter:     sp,
		embedder:     embedder,
		gateway:      gateway,
		docLocks:     newKeyedMutex(),
		projectLocks: newKeyedMutex(),
	}
}

// Ingest implements §4.5 ingest(document_id). At most one ingest per
// document id runs at a time; concurrent callers serialize on docLocks.
func (c *Coordinator) Ingest(ctx context.Context, documentID string) (*Result, error) {
	unlock := c.docLocks.Lock(documentID)
	defer unlock()

	started := time.Now()
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", documentID))

	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsProcessed() {
		return &Result{DocumentID: documentID, Err: coreerrors.ErrAlreadyProcessed}, coreerrors.ErrAlreadyProcessed
	}

	if !doc.HasExtractedText() {
		text, err := c.extractText(ctx, doc)
		if err != nil {
			return nil, err
		}
		if err := c.documents.SetExtractedText(ctx, doc.ID, text); err != nil {
			return nil, err
		}
		doc.ExtractedText = text
	}

	handle, err := c.ensureCollection(ctx, doc.ProjectID)
	if err != nil {
		return nil, err
	}

	chunks := c.splitter.Split(ctx, doc.ExtractedText)
	if len(chunks) == 0 {
		return nil, coreerrors.ErrEmptyContent
	}

	vectors, err := c.embedder.EmbedBatch(ctx, chunks, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	metadata := map[string]string{
		"filename":      doc.Filename,
		"original_name": doc.OriginalName,
		"mime_type":     doc.MimeType,
		"chunk_size":    strconv.Itoa(c.splitter.ChunkSize()),
		"total_chunks":  strconv.Itoa(len(chunks)),
		"created_at":    strconv.FormatInt(now.Unix(), 10),
	}
	points := make([]vectorstore.Point, len(chunks))
	for i, content := range chunks {
		points[i] = vectorstore.Point{
			ID:         uuid.NewString(),
			Vector:     vectors[i],
			DocumentID: doc.ID,
			ProjectID:  doc.ProjectID,
			Content:    content,
			ChunkIndex: i,
			Metadata:   metadata,
		}
	}
	if err := c.gateway.Upsert(ctx, handle, points); err != nil {
		return nil, err
	}

	if err := c.documents.MarkProcessed(ctx, doc.ID, len(chunks), now.Unix()); err != nil {
		return nil, err
	}

	elapsed := time.Since(started)
	logger.Info("document ingested", zap.Int("chunks", len(chunks)), zap.Duration("elapsed", elapsed))
	return &Result{
		DocumentID:       doc.ID,
		ChunksProcessed:  len(chunks),
		CollectionHandle: handle,
		ProcessingTime:   elapsed,
	}, nil
}

// Reingest implements §4.5 reingest(document_id): always issues
// delete_by_document before the new upsert, so a retry after a partial
// failure never leaves duplicate points behind.
func (c *Coordinator) Reingest(ctx context.Context, documentID string) (*Result, error) {
	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	project, err := c.projects.Get(ctx, doc.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.HasCollection() {
		if err := c.gateway.DeleteByDocument(ctx, project.CollectionHandle, doc.ID); err != nil {
			return nil, err
		}
	}
	if err := c.documents.ClearProcessed(ctx, doc.ID); err != nil {
		return nil, err
	}
	return c.Ingest(ctx, documentID)
}

// Delete implements §4.5 delete(document_id): the document record itself is
// left to the caller, since ownership of that row lives outside this
// package.
func (c *Coordinator) Delete(ctx context.Context, documentID string) error {
	doc, err := c.documents.Get(ctx, documentID)
	if err != nil {
		return err
	}
	project, err := c.projects.Get(ctx, doc.ProjectID)
	if err != nil {
		return err
	}
	if project.HasCollection() {
		if err := c.gateway.DeleteByDocument(ctx, project.CollectionHandle, doc.ID); err != nil {
			return err
		}
	}
	if c.store != nil && doc.StorageKey != "" {
		if err := c.store.Delete(ctx, doc.StorageKey); err != nil {
			return err
		}
	}
	return nil
}

// IngestProject implements §4.5 ingest_project(project_id): every
// unprocessed document is ingested sequentially, and one document's
// failure never aborts the rest.
func (c *Coordinator) IngestProject(ctx context.Context, projectID string) ([]*Result, error) {
	docs, err := c.documents.ListUnprocessed(ctx, projectID)
	if err != nil {
		return nil, err
	}
	results := make([]*Result, 0, len(docs))
	for _, doc := range docs {
		res, err := c.Ingest(ctx, doc.ID)
		if err != nil {
			if res == nil {
				res = &Result{DocumentID: doc.ID}
			}
			res.Err = err
		}
		results = append(results, res)
	}
	return results, nil
}

// SweepUnprocessed reingests every document whose raw bytes changed after
// its last successful ingest (DocumentRepo.ListStale), satisfying the
// Reingester contract the scheduled reingest sweep job depends on.
func (c *Coordinator) SweepUnprocessed(ctx context.Context) (int, error) {
	docs, err := c.documents.ListStale(ctx)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, doc := range docs {
		if _, err := c.Reingest(ctx, doc.ID); err != nil {
			logutil.GetLogger(ctx).Warn("reingest sweep failed for document",
				zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

func (c *Coordinator) extractText(ctx context.Context, doc *model.Document) (string, error) {
	rc, err := c.store.Open(ctx, doc.StorageKey)
	if err != nil {
		return "", coreerrors.ErrLoaderFailure
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", coreerrors.ErrLoaderFailure
	}
	return c.loader.Load(ctx, data, doc.MimeType, doc.Filename)
}

// ensureCollection implements the §5 per-project serialization rule: the
// first ingest in a project that observes a missing collection handle
// holds a per-project lock while creating and persisting it.
func (c *Coordinator) ensureCollection(ctx context.Context, projectID string) (string, error) {
	project, err := c.projects.Get(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project.HasCollection() {
		return project.CollectionHandle, nil
	}

	unlock := c.projectLocks.Lock(projectID)
	defer unlock()

	project, err = c.projects.Get(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project.HasCollection() {
		return project.CollectionHandle, nil
	}

	dimension := c.embedder.Dimension()
	handle, err := c.gateway.CreateCollection(ctx, projectID, dimension)
	if err != nil {
		return "", err
	}
	if err := c.projects.SetCollectionHandle(ctx, projectID, handle); err != nil && !coreerrors.IsConflict(err) {
		return "", err
	}
	return handle, nil
}

// keyedMutex serializes operations sharing the same string key without
// blocking operations on unrelated keys, per §5's keyed-mutex requirement
// for per-document and per-project locking.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
