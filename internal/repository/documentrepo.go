// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/peoplelane/esign/internal/model"
)

// SignaturePatch is one read-modify-write against a document's signature
// fields, conditioned on the version observed at read time.
type SignaturePatch struct {
	// BaseVer is the version the caller read; the write fails with
	// ErrVersionConflict when the row has moved on.
	BaseVer int64

	Status model.SignatureStatus

	// RequestID, when non-nil, replaces the stored signature request id.
	// An empty string clears it.
	RequestID *string

	// Metadata is merged into the stored metadata (see SignatureMetadata.Merge).
	Metadata model.SignatureMetadata
}

// DocumentRepository provides versioned access to the signature-bearing
// fields of portal documents.
type DocumentRepository interface {
	// Create inserts a new document row. Used by the portal side and by seeds.
	Create(ctx context.Context, d *model.Document) error

	// Get loads a document by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)

	// GetByRequestID loads the document bound to a signature request id.
	GetByRequestID(ctx context.Context, requestID string) (*model.Document, error)

	// UpdateSignature applies patch with optimistic concurrency (ver++) and
	// returns the new version.
	UpdateSignature(ctx context.Context, id uuid.UUID, patch SignaturePatch) (int64, error)
}
