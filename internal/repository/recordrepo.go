package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/peoplelane/esign/internal/model"
)

// AuditRepository appends and reads immutable communication/audit records.
type AuditRepository interface {
	// Append inserts one record. Records are never updated or deleted.
	Append(ctx context.Context, rec *model.AuditRecord) error
	// ListByDocument returns a document's audit trail oldest-first.
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*model.AuditRecord, error)
}

// NotificationRepository appends immutable user notifications.
type NotificationRepository interface {
	// Append inserts one notification.
	Append(ctx context.Context, rec *model.NotificationRecord) error
}
