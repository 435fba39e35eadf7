package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/sportsclub/internal/model"
)

// NotificationRepo is the per-user inbox.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create stores n and sets its id.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	var meta any
	if len(n.Meta) > 0 {
		b, err := json.Marshal(n.Meta)
		if err != nil {
			return err
		}
		meta = string(b)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, kind, title, message, meta) VALUES (?, ?, ?, ?, ?)`,
		n.UserID, n.Kind, n.Title, n.Message, meta)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListForUser returns the newest notifications first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	q := `SELECT id, user_id, kind, title, message, meta, is_read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		q += ` AND is_read = 0`
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var (
			n    model.Notification
			meta sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &meta, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &n.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one of the user's notifications as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM notifications WHERE id = ? AND user_id = ?`, id, userID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}
