package postgres

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/peoplelane/esign/internal/model"
)

// AuditRepo implements AuditRepository using PostgreSQL. The table is
// append-only; no update or delete statements exist here.
type AuditRepo struct{ db *DB }

// NewAuditRepo constructs an audit repository.
func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

// Append inserts one audit record.
func (r *AuditRepo) Append(ctx context.Context, rec *model.AuditRecord) error {
	if rec.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("generate audit id: %w", err)
		}
		rec.ID = id
	}
	const q = `
INSERT INTO signature_audit_log (id, document_id, record_type, recipient, subject, body)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q,
		rec.ID, rec.DocumentID, rec.RecordType, rec.Recipient, rec.Subject, rec.Body,
	).Scan(&rec.CreatedAt)
}

// ListByDocument returns a document's audit trail oldest-first.
func (r *AuditRepo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*model.AuditRecord, error) {
	const q = `
SELECT id, document_id, record_type, recipient, subject, body, created_at
FROM signature_audit_log
WHERE document_id=$1
ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanAudit(row pgx.Row) (*model.AuditRecord, error) {
	var rec model.AuditRecord
	err := row.Scan(&rec.ID, &rec.DocumentID, &rec.RecordType, &rec.Recipient, &rec.Subject, &rec.Body, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
