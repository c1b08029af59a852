package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/pkg/dbutil"
	coreerrors "github.com/xxxsen/ragcore/internal/pkg/errors"
)

const conversationTable = "conversation"

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, c *model.Conversation) error {
	data := []map[string]interface{}{{
		"id":         c.ID,
		"project_id": c.ProjectID,
		"title":      c.Title,
		"ctime":      c.Ctime,
		"mtime":      c.Mtime,
	}}
	query, args, err := builder.BuildInsert(conversationTable, data)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *ConversationRepo) Get(ctx context.Context, id string) (*model.Conversation, error) {
	const query = `SELECT id, project_id, title, ctime, mtime FROM conversation WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	c := &model.Conversation{}
	if err := row.Scan(&c.ID, &c.ProjectID, &c.Title, &c.Ctime, &c.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, coreerrors.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ConversationRepo) ListByProject(ctx context.Context, projectID string) ([]*model.Conversation, error) {
	const query = `SELECT id, project_id, title, ctime, mtime FROM conversation WHERE project_id = $1 ORDER BY mtime DESC`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Conversation
	for rows.Next() {
		c := &model.Conversation{}
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Title, &c.Ctime, &c.Mtime); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) Touch(ctx context.Context, id string, mtime int64) error {
	const query = `UPDATE conversation SET mtime = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, mtime, id)
	return err
}

func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{"id": id}
	query, args, err := builder.BuildDelete(conversationTable, where)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}
