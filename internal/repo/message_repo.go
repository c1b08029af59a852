package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/ragcore/internal/model"
	"github.com/xxxsen/ragcore/internal/pkg/dbutil"
)

const messageTable = "message"

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	metaJSON, err := json.Marshal(m.Metadata)
	if err != nil {
		return err
	}
	data := []map[string]interface{}{{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"role":            string(m.Role),
		"content":         m.Content,
		"metadata":        string(metaJSON),
		"ctime":           m.Ctime,
	}}
	query, args, err := builder.BuildInsert(messageTable, data)
	if err != nil {
		return err
	}
	query, args = dbutil.Finalize(query, args)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// ListByConversation returns messages in insertion order, the ordering
// §5 requires assistant messages to respect relative to their user message.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	const query = `SELECT id, conversation_id, role, content, metadata, ctime FROM message WHERE conversation_id = $1 ORDER BY ctime ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepo) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM message WHERE conversation_id = $1`
	var n int
	err := r.db.QueryRowContext(ctx, query, conversationID).Scan(&n)
	return n, err
}

func scanMessage(rows *sql.Rows) (*model.Message, error) {
	m := &model.Message{}
	var role string
	var metaJSON sql.NullString
	if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &metaJSON, &m.Ctime); err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	if metaJSON.Valid && metaJSON.String != "" {
		_ = json.Unmarshal([]byte(metaJSON.String), &m.Metadata)
	}
	return m, nil
}
