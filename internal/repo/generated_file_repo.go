package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/pkg/dbutil"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
)

const generatedFileTable = "generated_file"

type GeneratedFileRepo struct {
	db *sql.DB
}

func NewGeneratedFileRepo(db *sql.DB) *GeneratedFileRepo {
	return &GeneratedFileRepo{db: db}
}

func (r *GeneratedFileRepo) Create(ctx context.Context, f *model.GeneratedFile) error {
	data := []map[string]interface{}{{
		"id":              f.ID,
		"project_id":      f.ProjectID,
		"owner_id":        f.OwnerID,
		"file_name":       f.FileName,
		"display_name":    f.DisplayName,
		"file_type":       string(f.FileType),
		"format":          string(f.Format),
		"current_version": f.CurrentVersion,
		"ctime":           f.Ctime,
		"mtime":           f.Mtime,
	}}
	query, args, err := builder.BuildInsert(generatedFileTable, data)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByProjectAndName looks up the uniqueness key (project_id, filename)
// used by create_file to detect an existing file and delegate to
// new_version instead of creating a duplicate (§4.9 step 2).
func (r *GeneratedFileRepo) GetByProjectAndName(ctx context.Context, projectID, fileName string) (*model.GeneratedFile, error) {
	const query = `
		SELECT id, project_id, owner_id, file_name, display_name, file_type, format, current_version, ctime, mtime
		FROM generated_file WHERE project_id = $1 AND file_name = $2`
	row := r.db.QueryRowContext(ctx, query, projectID, fileName)
	return scanGeneratedFile(row)
}

func (r *GeneratedFileRepo) Get(ctx context.Context, id string) (*model.GeneratedFile, error) {
	const query = `
		SELECT id, project_id, owner_id, file_name, display_name, file_type, format, current_version, ctime, mtime
		FROM generated_file WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanGeneratedFile(row)
}

func (r *GeneratedFileRepo) ListByProject(ctx context.Context, projectID string) ([]*model.GeneratedFile, error) {
	const query = `
		SELECT id, project_id, owner_id, file_name, display_name, file_type, format, current_version, ctime, mtime
		FROM generated_file WHERE project_id = $1 ORDER BY mtime DESC`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.GeneratedFile
	for rows.Next() {
		f, err := scanGeneratedFileRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *GeneratedFileRepo) SetCurrentVersion(ctx context.Context, id string, version int, mtime int64) error {
	const query = `UPDATE generated_file SET current_version = $1, mtime = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, version, mtime, id)
	return err
}

func (r *GeneratedFileRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{"id": id}
	query, args, err := builder.BuildDelete(generatedFileTable, where)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func scanGeneratedFile(row *sql.Row) (*model.GeneratedFile, error) {
	f, err := scanGeneratedFileFields(row)
	if err == sql.ErrNoRows {
		return nil, coreerrors.ErrNotFound
	}
	return f, err
}

func scanGeneratedFileRows(rows *sql.Rows) (*model.GeneratedFile, error) {
	return scanGeneratedFileFields(rows)
}

func scanGeneratedFileFields(s rowScanner) (*model.GeneratedFile, error) {
	f := &model.GeneratedFile{}
	var fileType, format string
	if err := s.Scan(&f.ID, &f.ProjectID, &f.OwnerID, &f.FileName, &f.DisplayName, &fileType, &format, &f.CurrentVersion, &f.Ctime, &f.Mtime); err != nil {
		return nil, err
	}
	f.FileType = model.FileType(fileType)
	f.Format = model.FileFormat(format)
	return f, nil
}
