package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/peoplelane/esign/internal/errs"
	"github.com/peoplelane/esign/internal/model"
	"github.com/peoplelane/esign/internal/repository"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func docRow(id, owner uuid.UUID, status string, requestID string, meta []byte, ver int64, ts time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "owner_id", "title", "signature_required", "signature_status",
		"signature_request_id", "signature_metadata", "ver", "created_at", "updated_at",
	}).AddRow(id, owner, "Offer Letter", true, status, requestID, meta, ver, ts, ts)
}

func TestDocumentRepo_Get_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	owner := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()
	meta := []byte(`{"signer_email":"a@x.com","signing_url":"https://sign.example/s/1"}`)

	mock.ExpectQuery(`SELECT id, owner_id, title, signature_required, signature_status, signature_request_id, signature_metadata, ver, created_at, updated_at FROM documents WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(docRow(id, owner, "pending", "req-1", meta, 3, ts))

	d, err := r.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, d.SignatureStatus)
	require.Equal(t, "req-1", d.SignatureRequestID)
	require.Equal(t, "a@x.com", d.Metadata.SignerEmail)
	require.Equal(t, int64(3), d.Ver)
}

func TestDocumentRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`SELECT id, owner_id, title, signature_required, signature_status, signature_request_id, signature_metadata, ver, created_at, updated_at FROM documents WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), id)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDocumentRepo_GetByRequestID_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	mock.ExpectQuery(`SELECT id, owner_id, title, signature_required, signature_status, signature_request_id, signature_metadata, ver, created_at, updated_at FROM documents WHERE signature_request_id=\$1`).
		WithArgs("req-unknown").
		WillReturnError(pgx.ErrNoRows)

	_, err := r.GetByRequestID(context.Background(), "req-unknown")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDocumentRepo_UpdateSignature_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	reqID := "req-7"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT signature_request_id, signature_metadata, ver FROM documents WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"signature_request_id", "signature_metadata", "ver"}).
			AddRow("", []byte(`{}`), int64(0)))
	mock.ExpectExec(`UPDATE documents SET signature_status=\$2, signature_request_id=\$3, signature_metadata=\$4, ver=\$5, updated_at=now\(\) WHERE id=\$1`).
		WithArgs(id, "pending", reqID, pgxmock.AnyArg(), int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	ver, err := r.UpdateSignature(ctx, id, repository.SignaturePatch{
		BaseVer:   0,
		Status:    model.StatusPending,
		RequestID: &reqID,
		Metadata:  model.SignatureMetadata{SignerEmail: "a@x.com", RequestedAt: &now},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)
}

func TestDocumentRepo_UpdateSignature_KeepsRequestIDWhenNil(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	id := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT signature_request_id, signature_metadata, ver FROM documents WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"signature_request_id", "signature_metadata", "ver"}).
			AddRow("req-keep", []byte(`{}`), int64(4)))
	mock.ExpectExec(`UPDATE documents SET signature_status=\$2, signature_request_id=\$3, signature_metadata=\$4, ver=\$5, updated_at=now\(\) WHERE id=\$1`).
		WithArgs(id, "signed", "req-keep", pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	ver, err := r.UpdateSignature(context.Background(), id, repository.SignaturePatch{
		BaseVer: 4,
		Status:  model.StatusSigned,
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), ver)
}

func TestDocumentRepo_UpdateSignature_VersionConflict(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	id := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT signature_request_id, signature_metadata, ver FROM documents WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"signature_request_id", "signature_metadata", "ver"}).
			AddRow("req-1", []byte(`{}`), int64(9)))
	mock.ExpectRollback()

	_, err := r.UpdateSignature(context.Background(), id, repository.SignaturePatch{
		BaseVer: 7,
		Status:  model.StatusSigned,
	})
	require.ErrorIs(t, err, errs.ErrVersionConflict)
}

func TestDocumentRepo_UpdateSignature_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	id := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT signature_request_id, signature_metadata, ver FROM documents WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.UpdateSignature(context.Background(), id, repository.SignaturePatch{BaseVer: 0, Status: model.StatusPending})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDocumentRepo_UpdateSignature_RequestIDTaken(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	id := uuid.Must(uuid.NewV4())
	reqID := "req-dup"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT signature_request_id, signature_metadata, ver FROM documents WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"signature_request_id", "signature_metadata", "ver"}).
			AddRow("", []byte(`{}`), int64(0)))
	mock.ExpectExec(`UPDATE documents SET signature_status=\$2, signature_request_id=\$3, signature_metadata=\$4, ver=\$5, updated_at=now\(\) WHERE id=\$1`).
		WithArgs(id, "pending", reqID, pgxmock.AnyArg(), int64(1)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := r.UpdateSignature(context.Background(), id, repository.SignaturePatch{
		BaseVer:   0,
		Status:    model.StatusPending,
		RequestID: &reqID,
	})
	require.ErrorIs(t, err, errs.ErrRequestIDTaken)
}

func TestDocumentRepo_UpdateSignature_BeginErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewDocumentRepo(db)

	mock.ExpectBegin().WillReturnError(errors.New("boom"))
	_, err := r.UpdateSignature(context.Background(), uuid.Must(uuid.NewV4()), repository.SignaturePatch{})
	require.Error(t, err)
}
