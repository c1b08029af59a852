package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/pkg/dbutil"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
)

const documentTable = "document"

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, d *model.Document) error {
	data := []map[string]interface{}{{
		"id":             d.ID,
		"project_id":     d.ProjectID,
		"filename":       d.Filename,
		"original_name":  d.OriginalName,
		"mime_type":      d.MimeType,
		"byte_size":      d.ByteSize,
		"storage_key":    d.StorageKey,
		"ctime":          d.Ctime,
		"mtime":          d.Mtime,
	}}
	query, args, err := builder.BuildInsert(documentTable, data)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*model.Document, error) {
	const query = `
		SELECT id, project_id, filename, original_name, mime_type, byte_size, storage_key,
		       extracted_text, total_chunks, processed_at, ctime, mtime
		FROM document WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanDocument(row)
}

func (r *DocumentRepo) ListByProject(ctx context.Context, projectID string) ([]*model.Document, error) {
	const query = `
		SELECT id, project_id, filename, original_name, mime_type, byte_size, storage_key,
		       extracted_text, total_chunks, processed_at, ctime, mtime
		FROM document WHERE project_id = $1 ORDER BY ctime ASC`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []*model.Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListUnprocessed mirrors the teacher's ListStaleDocuments idea: find
// documents with no processed_at for a project, used by ingest_project.
func (r *DocumentRepo) ListUnprocessed(ctx context.Context, projectID string) ([]*model.Document, error) {
	const query = `
		SELECT id, project_id, filename, original_name, mime_type, byte_size, storage_key,
		       extracted_text, total_chunks, processed_at, ctime, mtime
		FROM document WHERE project_id = $1 AND (processed_at IS NULL OR processed_at = 0) ORDER BY ctime ASC`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []*model.Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ListStale finds processed documents whose raw bytes were updated after
// their last processed_at, grounding the reingest sweep job.
func (r *DocumentRepo) ListStale(ctx context.Context) ([]*model.Document, error) {
	const query = `
		SELECT id, project_id, filename, original_name, mime_type, byte_size, storage_key,
		       extracted_text, total_chunks, processed_at, ctime, mtime
		FROM document WHERE processed_at IS NOT NULL AND processed_at > 0 AND mtime > processed_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []*model.Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) SetExtractedText(ctx context.Context, id, text string) error {
	const query = `UPDATE document SET extracted_text = $1, mtime = mtime WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, text, id)
	return err
}

// MarkProcessed sets processed_at and total_chunks together, the single
// write that flips a document from "uploaded" to "processed" (§4.5 step 7).
func (r *DocumentRepo) MarkProcessed(ctx context.Context, id string, totalChunks int, processedAt int64) error {
	const query = `UPDATE document SET total_chunks = $1, processed_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, totalChunks, processedAt, id)
	return err
}

// ClearProcessed clears processed_at and extracted_text for a reingest, per
// §4.5 reingest step 2.
func (r *DocumentRepo) ClearProcessed(ctx context.Context, id string) error {
	const query = `UPDATE document SET processed_at = NULL, extracted_text = '', total_chunks = 0 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// UpdateStorageKey replaces the raw-bytes pointer and, per the Document
// invariant (c), clears processed_at so the new bytes require re-ingest.
func (r *DocumentRepo) UpdateStorageKey(ctx context.Context, id, storageKey string, byteSize int64, mtime int64) error {
	const query = `UPDATE document SET storage_key = $1, byte_size = $2, processed_at = NULL, extracted_text = '', mtime = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, storageKey, byteSize, mtime, id)
	return err
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{"id": id}
	query, args, err := builder.BuildDelete(documentTable, where)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row *sql.Row) (*model.Document, error) {
	d, err := scanDocumentFields(row)
	if err == sql.ErrNoRows {
		return nil, coreerrors.ErrNotFound
	}
	return d, err
}

func scanDocumentRows(rows *sql.Rows) (*model.Document, error) {
	return scanDocumentFields(rows)
}

func scanDocumentFields(s rowScanner) (*model.Document, error) {
	d := &model.Document{}
	var extractedText sql.NullString
	var processedAt sql.NullInt64
	if err := s.Scan(
		&d.ID, &d.ProjectID, &d.Filename, &d.OriginalName, &d.MimeType, &d.ByteSize, &d.StorageKey,
		&extractedText, &d.TotalChunks, &processedAt, &d.Ctime, &d.Mtime,
	); err != nil {
		return nil, err
	}
	d.ExtractedText = extractedText.String
	d.ProcessedAt = processedAt.Int64
	return d, nil
}
