package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/pkg/dbutil"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
)

const projectTable = "project"

type ProjectRepo struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) error {
	data := []map[string]interface{}{{
		"id":         p.ID,
		"owner_id":   p.OwnerID,
		"name":       p.Name,
		"descr":      p.Description,
		"ctime":      p.Ctime,
		"mtime":      p.Mtime,
	}}
	query, args, err := builder.BuildInsert(projectTable, data)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *ProjectRepo) Get(ctx context.Context, id string) (*model.Project, error) {
	where := map[string]interface{}{"id": id, "_limit": []uint{1}}
	query, args, err := builder.BuildSelect(projectTable, where, []string{"id", "owner_id", "name", "descr", "collection_handle", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	query, args = dbutil.Finalize(query, args)
	row := r.db.QueryRowContext(ctx, query, args...)
	p := &model.Project{}
	var handle sql.NullString
	var descr sql.NullString
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &descr, &handle, &p.Ctime, &p.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, coreerrors.ErrNotFound
		}
		return nil, err
	}
	p.Description = descr.String
	p.CollectionHandle = handle.String
	return p, nil
}

func (r *ProjectRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Project, error) {
	const query = `
		SELECT id, owner_id, name, descr, collection_handle, ctime, mtime
		FROM project WHERE owner_id = $1 ORDER BY mtime DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Project
	for rows.Next() {
		p := &model.Project{}
		var handle, descr sql.NullString
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &descr, &handle, &p.Ctime, &p.Mtime); err != nil {
			return nil, err
		}
		p.Description = descr.String
		p.CollectionHandle = handle.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetCollectionHandle persists the handle exactly once: it only succeeds
// when the column is currently empty, enforcing "never reassigned once set"
// (§3, testable property 2) at the storage layer rather than trusting the
// caller's in-memory check alone.
func (r *ProjectRepo) SetCollectionHandle(ctx context.Context, id, handle string) error {
	const query = `UPDATE project SET collection_handle = $1 WHERE id = $2 AND (collection_handle IS NULL OR collection_handle = '')`
	res, err := r.db.ExecContext(ctx, query, handle, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return coreerrors.ErrConflict
	}
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{"id": id}
	query, args, err := builder.BuildDelete(projectTable, where)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}
