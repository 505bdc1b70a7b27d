package postgres

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/peoplelane/esign/internal/model"
)

// NotificationRepo implements NotificationRepository using PostgreSQL.
type NotificationRepo struct{ db *DB }

// NewNotificationRepo constructs a notification repository.
func NewNotificationRepo(db *DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Append inserts one notification record.
func (r *NotificationRepo) Append(ctx context.Context, rec *model.NotificationRecord) error {
	if rec.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("generate notification id: %w", err)
		}
		rec.ID = id
	}
	const q = `
INSERT INTO notifications (id, user_id, document_id, subject, body)
VALUES ($1,$2,$3,$4,$5)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q,
		rec.ID, rec.UserID, rec.DocumentID, rec.Subject, rec.Body,
	).Scan(&rec.CreatedAt)
}
