package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/peoplelane/esign/internal/errs"
	"github.com/peoplelane/esign/internal/model"
	"github.com/peoplelane/esign/internal/repository"
)

// DocumentRepo implements DocumentRepository using PostgreSQL.
type DocumentRepo struct{ db *DB }

// NewDocumentRepo constructs a document repository.
func NewDocumentRepo(db *DB) *DocumentRepo { return &DocumentRepo{db: db} }

const docColumns = `id, owner_id, title, signature_required, signature_status, signature_request_id, signature_metadata, ver, created_at, updated_at`

// Create inserts a new document row.
func (r *DocumentRepo) Create(ctx context.Context, d *model.Document) error {
	metaJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if d.SignatureStatus == "" {
		d.SignatureStatus = model.StatusNotSent
	}
	const q = `
INSERT INTO documents (id, owner_id, title, signature_required, signature_status, signature_request_id, signature_metadata, ver)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING created_at, updated_at`
	err = r.db.Pool.QueryRow(ctx, q,
		d.ID, d.OwnerID, d.Title, d.SignatureRequired,
		string(d.SignatureStatus), d.SignatureRequestID, metaJSON, d.Ver,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrRequestIDTaken
	}
	return err
}

// Get loads a document by ID.
func (r *DocumentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE id=$1`
	return r.scanDocument(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByRequestID loads the document bound to a signature request id.
func (r *DocumentRepo) GetByRequestID(ctx context.Context, requestID string) (*model.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE signature_request_id=$1`
	return r.scanDocument(r.db.Pool.QueryRow(ctx, q, requestID))
}

// UpdateSignature applies a signature patch with optimistic concurrency.
// The row is locked, the base version compared, the metadata merged in Go,
// and the whole thing written back with ver+1.
func (r *DocumentRepo) UpdateSignature(
	ctx context.Context, id uuid.UUID, patch repository.SignaturePatch,
) (newVer int64, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const sel = `SELECT signature_request_id, signature_metadata, ver FROM documents WHERE id=$1 FOR UPDATE`
	var (
		curRequestID string
		metaJSON     []byte
		curVer       int64
	)
	if err = tx.QueryRow(ctx, sel, id).Scan(&curRequestID, &metaJSON, &curVer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	if curVer != patch.BaseVer {
		return 0, errs.ErrVersionConflict
	}

	var meta model.SignatureMetadata
	if len(metaJSON) > 0 {
		if err = json.Unmarshal(metaJSON, &meta); err != nil {
			return 0, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	meta.Merge(patch.Metadata)
	merged, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("marshal metadata: %w", err)
	}

	requestID := curRequestID
	if patch.RequestID != nil {
		requestID = *patch.RequestID
	}

	newVer = curVer + 1
	const upd = `UPDATE documents SET signature_status=$2, signature_request_id=$3, signature_metadata=$4, ver=$5, updated_at=now() WHERE id=$1`
	if _, err = tx.Exec(ctx, upd, id, string(patch.Status), requestID, merged, newVer); err != nil {
		if isUniqueViolation(err) {
			return 0, errs.ErrRequestIDTaken
		}
		return 0, err
	}
	return newVer, nil
}

func (r *DocumentRepo) scanDocument(row pgx.Row) (*model.Document, error) {
	var (
		d        model.Document
		status   string
		metaJSON []byte
	)
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.Title, &d.SignatureRequired,
		&status, &d.SignatureRequestID, &metaJSON, &d.Ver,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	d.SignatureStatus = model.SignatureStatus(status)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &d, nil
}
