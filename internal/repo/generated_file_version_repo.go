package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/pkg/dbutil"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
)

const generatedFileVersionTable = "generated_file_version"

type GeneratedFileVersionRepo struct {
	db *sql.DB
}

func NewGeneratedFileVersionRepo(db *sql.DB) *GeneratedFileVersionRepo {
	return &GeneratedFileVersionRepo{db: db}
}

func (r *GeneratedFileVersionRepo) Create(ctx context.Context, v *model.GeneratedFileVersion) error {
	sourcesJSON, err := json.Marshal(v.Sources)
	if err != nil {
		return err
	}
	data := []map[string]interface{}{{
		"id":            v.ID,
		"file_id":       v.FileID,
		"version":       v.Version,
		"prompt":        v.Prompt,
		"edit_prompt":   v.EditPrompt,
		"base_version":  v.BaseVersion,
		"storage_key":   v.StorageKey,
		"byte_size":     v.ByteSize,
		"page_count":    v.PageCount,
		"status":        string(v.Status),
		"error_message": v.ErrorMessage,
		"generation_ms": v.GenerationMS,
		"sources":       string(sourcesJSON),
		"ctime":         v.Ctime,
	}}
	query, args, err := builder.BuildInsert(generatedFileVersionTable, data)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *GeneratedFileVersionRepo) Get(ctx context.Context, fileID string, version int) (*model.GeneratedFileVersion, error) {
	const query = `
		SELECT id, file_id, version, prompt, edit_prompt, base_version, storage_key, byte_size,
		       page_count, status, error_message, generation_ms, sources, ctime
		FROM generated_file_version WHERE file_id = $1 AND version = $2`
	row := r.db.QueryRowContext(ctx, query, fileID, version)
	return scanVersion(row)
}

func (r *GeneratedFileVersionRepo) ListByFile(ctx context.Context, fileID string) ([]*model.GeneratedFileVersion, error) {
	const query = `
		SELECT id, file_id, version, prompt, edit_prompt, base_version, storage_key, byte_size,
		       page_count, status, error_message, generation_ms, sources, ctime
		FROM generated_file_version WHERE file_id = $1 ORDER BY version ASC`
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.GeneratedFileVersion
	for rows.Next() {
		v, err := scanVersionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *GeneratedFileVersionRepo) UpdateCompleted(ctx context.Context, id, storageKey string, byteSize int64, pageCount int, sources []model.RetrievedChunk, generationMS int64) error {
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	const query = `
		UPDATE generated_file_version
		SET storage_key = $1, byte_size = $2, page_count = $3, sources = $4,
		    generation_ms = $5, status = $6, error_message = ''
		WHERE id = $7`
	_, err = r.db.ExecContext(ctx, query, storageKey, byteSize, pageCount, string(sourcesJSON), generationMS, string(model.JobStatusCompleted), id)
	return err
}

func (r *GeneratedFileVersionRepo) UpdateFailed(ctx context.Context, id, errMessage string) error {
	const query = `UPDATE generated_file_version SET status = $1, error_message = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, string(model.JobStatusFailed), errMessage, id)
	return err
}

func (r *GeneratedFileVersionRepo) DeleteByFile(ctx context.Context, fileID string) error {
	where := map[string]interface{}{"file_id": fileID}
	query, args, err := builder.BuildDelete(generatedFileVersionTable, where)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func scanVersion(row *sql.Row) (*model.GeneratedFileVersion, error) {
	v, err := scanVersionFields(row)
	if err == sql.ErrNoRows {
		return nil, coreerrors.ErrNotFound
	}
	return v, err
}

func scanVersionRows(rows *sql.Rows) (*model.GeneratedFileVersion, error) {
	return scanVersionFields(rows)
}

func scanVersionFields(s rowScanner) (*model.GeneratedFileVersion, error) {
	v := &model.GeneratedFileVersion{}
	var status string
	var sourcesJSON sql.NullString
	var editPrompt, errorMessage, storageKey sql.NullString
	if err := s.Scan(
		&v.ID, &v.FileID, &v.Version, &v.Prompt, &editPrompt, &v.BaseVersion, &storageKey, &v.ByteSize,
		&v.PageCount, &status, &errorMessage, &v.GenerationMS, &sourcesJSON, &v.Ctime,
	); err != nil {
		return nil, err
	}
	v.Status = model.JobStatus(status)
	v.EditPrompt = editPrompt.String
	v.ErrorMessage = errorMessage.String
	v.StorageKey = storageKey.String
	if sourcesJSON.Valid && sourcesJSON.String != "" {
		_ = json.Unmarshal([]byte(sourcesJSON.String), &v.Sources)
	}
	return v, nil
}
