// Package service implements the signature request orchestrator and the
// webhook event processor on top of the repository and provider interfaces.
package service

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/peoplelane/esign/internal/errs"
	"github.com/peoplelane/esign/internal/model"
	"github.com/peoplelane/esign/internal/provider"
	"github.com/peoplelane/esign/internal/repository"
)

// RequestSignatureInput is one request to send a document for signature.
type RequestSignatureInput struct {
	DocumentID  uuid.UUID
	SignerEmail string
	SignerName  string
	Subject     string
	Message     string
	RequestedBy string
}

// RequestSignatureResult reports the issued request.
type RequestSignatureResult struct {
	RequestID  string
	SigningURL string
}

// StatusInfo is a read-only snapshot of a document's signature state.
type StatusInfo struct {
	Status       model.SignatureStatus `json:"status"`
	RequestID    string                `json:"request_id,omitempty"`
	SignerEmail  string                `json:"signer_email,omitempty"`
	SignerName   string                `json:"signer_name,omitempty"`
	SigningURL   string                `json:"signing_url,omitempty"`
	RequestedAt  *time.Time            `json:"requested_at,omitempty"`
	LastViewedAt *time.Time            `json:"last_viewed_at,omitempty"`
	SignedAt     *time.Time            `json:"signed_at,omitempty"`
	DeclinedAt   *time.Time            `json:"declined_at,omitempty"`
	CancelledAt  *time.Time            `json:"cancelled_at,omitempty"`
	FinalCopyURI string                `json:"final_copy_uri,omitempty"`
}

// SignatureService orchestrates outbound signature requests: provider call,
// document transition to pending, audit trail and owner notification.
type SignatureService struct {
	docs     repository.DocumentRepository
	audit    repository.AuditRepository
	notifs   repository.NotificationRepository
	provider provider.Client
	log      *zap.Logger
}

// NewSignatureService constructs the orchestrator.
func NewSignatureService(
	docs repository.DocumentRepository,
	audit repository.AuditRepository,
	notifs repository.NotificationRepository,
	prov provider.Client,
	log *zap.Logger,
) *SignatureService {
	return &SignatureService{docs: docs, audit: audit, notifs: notifs, provider: prov, log: log}
}

// RequestSignature issues a signature request for a document.
// Preconditions: the document exists, requires a signature, and its status is
// not_sent, declined or cancelled (re-requesting resets the lifecycle).
// The document update, audit record and owner notification form one logical
// unit: a failure after the document moved to pending rolls it back to its
// prior status. The provider-side request, once created, is not retried.
func (s *SignatureService) RequestSignature(ctx context.Context, in RequestSignatureInput) (*RequestSignatureResult, error) {
	if in.DocumentID == uuid.Nil {
		return nil, fmt.Errorf("empty document id: %w", errs.ErrValidation)
	}
	if _, err := mail.ParseAddress(in.SignerEmail); err != nil {
		return nil, fmt.Errorf("bad signer email %q: %w", in.SignerEmail, errs.ErrValidation)
	}

	doc, err := s.docs.Get(ctx, in.DocumentID)
	if err != nil {
		return nil, err
	}
	if !doc.SignatureRequired {
		return nil, fmt.Errorf("document does not require a signature: %w", errs.ErrPrecondition)
	}
	if !doc.SignatureStatus.Requestable() {
		return nil, fmt.Errorf("signature request already %s: %w", doc.SignatureStatus, errs.ErrPrecondition)
	}

	res, err := s.provider.CreateSignatureRequest(ctx, provider.CreateRequest{
		DocumentID:  doc.ID.String(),
		Title:       doc.Title,
		SignerEmail: in.SignerEmail,
		SignerName:  in.SignerName,
		Subject:     in.Subject,
		Message:     in.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}

	now := time.Now().UTC()
	newVer, err := s.docs.UpdateSignature(ctx, doc.ID, repository.SignaturePatch{
		BaseVer:   doc.Ver,
		Status:    model.StatusPending,
		RequestID: &res.RequestID,
		Metadata: model.SignatureMetadata{
			RequestedBy: in.RequestedBy,
			SignerEmail: in.SignerEmail,
			SignerName:  in.SignerName,
			SigningURL:  res.SigningURL,
			RequestedAt: &now,
		},
	})
	if err != nil {
		// Provider-side request exists but the document never moved; the
		// orphaned request expires on the provider's side.
		s.log.Warn("signature request issued but document update failed",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	rec := &model.AuditRecord{
		DocumentID: doc.ID,
		RecordType: model.AuditSignatureRequest,
		Recipient:  in.SignerEmail,
		Subject:    fmt.Sprintf("Signature requested: %s", doc.Title),
		Body:       in.Message,
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		s.rollback(ctx, doc, newVer)
		return nil, fmt.Errorf("audit append: %w", err)
	}

	notif := &model.NotificationRecord{
		UserID:     doc.OwnerID,
		DocumentID: doc.ID,
		Subject:    "Signature request sent",
		Body:       fmt.Sprintf("%s was sent to %s for signature", doc.Title, in.SignerEmail),
	}
	if err := s.notifs.Append(ctx, notif); err != nil {
		s.rollback(ctx, doc, newVer)
		return nil, fmt.Errorf("notification append: %w", err)
	}

	s.log.Info("signature request issued",
		zap.String("document_id", doc.ID.String()),
		zap.String("request_id", res.RequestID),
		zap.String("signer", in.SignerEmail),
	)
	return &RequestSignatureResult{RequestID: res.RequestID, SigningURL: res.SigningURL}, nil
}

// rollback restores the document's prior status and request id after a
// partial failure. Metadata merged by the failed attempt stays (merge never
// erases), which is harmless: the status is what gates every operation.
func (s *SignatureService) rollback(ctx context.Context, prior *model.Document, newVer int64) {
	priorReqID := prior.SignatureRequestID
	if _, err := s.docs.UpdateSignature(ctx, prior.ID, repository.SignaturePatch{
		BaseVer:   newVer,
		Status:    prior.SignatureStatus,
		RequestID: &priorReqID,
	}); err != nil {
		s.log.Error("rollback of signature request failed",
			zap.String("document_id", prior.ID.String()),
			zap.Error(err),
		)
	}
}

// CheckStatus returns the current signature state of a document. Pure read,
// no provider round-trip.
func (s *SignatureService) CheckStatus(ctx context.Context, documentID uuid.UUID) (*StatusInfo, error) {
	if documentID == uuid.Nil {
		return nil, fmt.Errorf("empty document id: %w", errs.ErrValidation)
	}
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	m := doc.Metadata
	return &StatusInfo{
		Status:       doc.SignatureStatus,
		RequestID:    doc.SignatureRequestID,
		SignerEmail:  m.SignerEmail,
		SignerName:   m.SignerName,
		SigningURL:   m.SigningURL,
		RequestedAt:  m.RequestedAt,
		LastViewedAt: m.LastViewedAt,
		SignedAt:     m.SignedAt,
		DeclinedAt:   m.DeclinedAt,
		CancelledAt:  m.CancelledAt,
		FinalCopyURI: m.FinalCopyURI,
	}, nil
}

// Cancel withdraws a pending signature request. Legal only from pending; the
// provider is cancelled first so the document never claims a dead request is
// still live. On any error the document is left unchanged.
func (s *SignatureService) Cancel(ctx context.Context, documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return fmt.Errorf("empty document id: %w", errs.ErrValidation)
	}
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.SignatureStatus != model.StatusPending {
		return fmt.Errorf("cannot cancel signature request in status %s: %w", doc.SignatureStatus, errs.ErrPrecondition)
	}

	if err := s.provider.CancelSignatureRequest(ctx, doc.SignatureRequestID); err != nil {
		return fmt.Errorf("provider: %w", err)
	}

	now := time.Now().UTC()
	if _, err := s.docs.UpdateSignature(ctx, doc.ID, repository.SignaturePatch{
		BaseVer:  doc.Ver,
		Status:   model.StatusCancelled,
		Metadata: model.SignatureMetadata{CancelledAt: &now},
	}); err != nil {
		return err
	}

	s.log.Info("signature request cancelled",
		zap.String("document_id", doc.ID.String()),
		zap.String("request_id", doc.SignatureRequestID),
	)
	return nil
}
