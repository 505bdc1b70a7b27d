package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peoplelane/esign/internal/errs"
	"github.com/peoplelane/esign/internal/model"
	"github.com/peoplelane/esign/internal/repository"
)

// ProcessOutcome classifies how the processor disposed of an event. Every
// outcome except an internal error is a success from the provider's point of
// view and is acknowledged with 200.
type ProcessOutcome string

const (
	// OutcomeApplied: the event advanced document state or metadata.
	OutcomeApplied ProcessOutcome = "applied"
	// OutcomeIgnored: unknown event type, or the document is in a terminal
	// state which no webhook event may leave.
	OutcomeIgnored ProcessOutcome = "ignored"
	// OutcomeDuplicate: the event tuple was already applied.
	OutcomeDuplicate ProcessOutcome = "duplicate"
	// OutcomeOrphaned: no document matches the signature request id.
	OutcomeOrphaned ProcessOutcome = "orphaned"
	// OutcomeDropped: collaborator writes kept failing; logged and dropped.
	OutcomeDropped ProcessOutcome = "dropped"
)

// ProcessResult reports the disposition of one webhook event.
type ProcessResult struct {
	Outcome ProcessOutcome
	Status  model.SignatureStatus // document status after processing, if known
}

// ReplayFilter is the optional fast-path dedup check (see internal/dedup).
type ReplayFilter interface {
	IsNew(ctx context.Context, requestID, eventType string, eventTime time.Time) (bool, error)
}

// EventService consumes authenticated webhook events and drives the document
// signature state machine.
type EventService struct {
	docs        repository.DocumentRepository
	audit       repository.AuditRepository
	notifs      repository.NotificationRepository
	filter      ReplayFilter // may be nil
	log         *zap.Logger
	maxAttempts int
}

// NewEventService constructs the processor. maxAttempts bounds both
// version-conflict retries and collaborator-failure retries.
func NewEventService(
	docs repository.DocumentRepository,
	audit repository.AuditRepository,
	notifs repository.NotificationRepository,
	filter ReplayFilter,
	log *zap.Logger,
	maxAttempts int,
) *EventService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &EventService{docs: docs, audit: audit, notifs: notifs, filter: filter, log: log, maxAttempts: maxAttempts}
}

// Process applies one authenticated webhook event. Orphaned events, unknown
// event types, replays and events against terminal documents are all
// acknowledged, never errored: the provider retries on failure and none of
// these conditions improves on retry. An error return means an unexpected
// internal fault (500 to the provider).
func (s *EventService) Process(ctx context.Context, ev *model.InboundSignatureEvent) (*ProcessResult, error) {
	doc, err := s.docs.GetByRequestID(ctx, ev.RequestID)
	if errors.Is(err, errs.ErrNotFound) {
		s.log.Info("orphaned webhook event",
			zap.String("request_id", ev.RequestID),
			zap.String("event_type", ev.EventType),
		)
		return &ProcessResult{Outcome: OutcomeOrphaned}, nil
	}
	if err != nil {
		return nil, err
	}

	if s.filter != nil {
		fresh, ferr := s.filter.IsNew(ctx, ev.RequestID, ev.EventType, ev.EventTime)
		switch {
		case ferr != nil:
			// Fast path down; the metadata check below still catches replays.
			s.log.Warn("replay filter unavailable", zap.Error(ferr))
		case !fresh:
			return &ProcessResult{Outcome: OutcomeDuplicate, Status: doc.SignatureStatus}, nil
		}
	}

	for attempt := 1; ; attempt++ {
		res, err := s.apply(ctx, doc, ev)
		if err == nil {
			return res, nil
		}
		if attempt >= s.maxAttempts {
			s.log.Error("dropping webhook event after retries",
				zap.String("request_id", ev.RequestID),
				zap.String("event_type", ev.EventType),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return &ProcessResult{Outcome: OutcomeDropped, Status: doc.SignatureStatus}, nil
		}
		if errors.Is(err, errs.ErrVersionConflict) {
			// Lost the race against a concurrent event for the same request;
			// re-read and re-evaluate against the fresh state.
			doc, err = s.docs.GetByRequestID(ctx, ev.RequestID)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return &ProcessResult{Outcome: OutcomeOrphaned}, nil
				}
				return nil, err
			}
		}
	}
}

// apply performs one attempt at the state transition for ev against the
// document as read. Returns ErrVersionConflict when the document moved
// underneath us.
func (s *EventService) apply(ctx context.Context, doc *model.Document, ev *model.InboundSignatureEvent) (*ProcessResult, error) {
	if doc.SignatureStatus.Terminal() {
		s.log.Info("webhook event for terminal document dropped",
			zap.String("document_id", doc.ID.String()),
			zap.String("status", string(doc.SignatureStatus)),
			zap.String("event_type", ev.EventType),
		)
		return &ProcessResult{Outcome: OutcomeIgnored, Status: doc.SignatureStatus}, nil
	}

	// Authoritative replay check: same tuple as the last applied event, or an
	// event older than what we already applied, is a stale redelivery.
	if last := doc.Metadata.LastEventAt; last != nil {
		if ev.EventTime.Before(*last) ||
			(ev.EventTime.Equal(*last) && ev.EventType == doc.Metadata.LastEventType) {
			return &ProcessResult{Outcome: OutcomeDuplicate, Status: doc.SignatureStatus}, nil
		}
	}

	kind := ev.Kind()
	if kind == model.KindUnknown {
		s.log.Info("unrecognized webhook event type acknowledged",
			zap.String("event_type", ev.EventType),
		)
		return &ProcessResult{Outcome: OutcomeIgnored, Status: doc.SignatureStatus}, nil
	}
	if kind == model.KindReminded {
		// Log-only: no state or metadata requirement.
		s.log.Info("signer reminded",
			zap.String("document_id", doc.ID.String()),
			zap.String("request_id", ev.RequestID),
		)
		return &ProcessResult{Outcome: OutcomeApplied, Status: doc.SignatureStatus}, nil
	}

	patch := repository.SignaturePatch{
		BaseVer: doc.Ver,
		Status:  doc.SignatureStatus,
		Metadata: model.SignatureMetadata{
			LastEventType: ev.EventType,
			LastEventAt:   &ev.EventTime,
			Signers:       signerRecords(ev),
		},
	}

	var sideEffect func(ctx context.Context) error

	switch kind {
	case model.KindViewed:
		patch.Metadata.LastViewedAt = &ev.EventTime

	case model.KindSigned:
		// One signer of several finished; per-signer records already merged.

	case model.KindAllSigned:
		patch.Status = model.StatusSigned
		patch.Metadata.SignedAt = signedAt(ev)
		patch.Metadata.FinalCopyURI = ev.FinalCopyURI
		sideEffect = func(ctx context.Context) error {
			rec := &model.AuditRecord{
				DocumentID: doc.ID,
				RecordType: model.AuditSignatureCompleted,
				Recipient:  recipient(doc, ev),
				Subject:    fmt.Sprintf("Document signed: %s", doc.Title),
			}
			if err := s.audit.Append(ctx, rec); err != nil {
				return fmt.Errorf("audit append: %w", err)
			}
			notif := &model.NotificationRecord{
				UserID:     doc.OwnerID,
				DocumentID: doc.ID,
				Subject:    "Document signed",
				Body:       fmt.Sprintf("%s has been signed by all parties", doc.Title),
			}
			if err := s.notifs.Append(ctx, notif); err != nil {
				return fmt.Errorf("notification append: %w", err)
			}
			return nil
		}

	case model.KindDeclined:
		patch.Status = model.StatusDeclined
		patch.Metadata.DeclinedAt = &ev.EventTime
		patch.Metadata.DeclineReason = declineReason(ev)
		sideEffect = func(ctx context.Context) error {
			notif := &model.NotificationRecord{
				UserID:     doc.OwnerID,
				DocumentID: doc.ID,
				Subject:    "Signature declined",
				Body:       fmt.Sprintf("%s: the signer declined to sign", doc.Title),
			}
			if err := s.notifs.Append(ctx, notif); err != nil {
				return fmt.Errorf("notification append: %w", err)
			}
			return nil
		}

	case model.KindCanceled:
		patch.Status = model.StatusCancelled
		patch.Metadata.CancelledAt = &ev.EventTime

	case model.KindReassigned:
		if len(ev.Signers) > 0 {
			patch.Metadata.SignerEmail = ev.Signers[0].Email
			patch.Metadata.SignerName = ev.Signers[0].Name
		}
	}

	if _, err := s.docs.UpdateSignature(ctx, doc.ID, patch); err != nil {
		return nil, err
	}

	if sideEffect != nil {
		// The document already transitioned; a lost side effect must not
		// resurrect the event, so failures here retry locally and then log.
		if err := s.withRetry(ctx, sideEffect); err != nil {
			s.log.Error("side-effect write lost",
				zap.String("document_id", doc.ID.String()),
				zap.String("event_type", ev.EventType),
				zap.Error(err),
			)
		}
	}

	s.log.Info("webhook event applied",
		zap.String("document_id", doc.ID.String()),
		zap.String("event_type", ev.EventType),
		zap.String("status", string(patch.Status)),
	)
	return &ProcessResult{Outcome: OutcomeApplied, Status: patch.Status}, nil
}

// withRetry runs fn up to maxAttempts times.
func (s *EventService) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}

// signerRecords converts the event's signer list into metadata sub-records.
func signerRecords(ev *model.InboundSignatureEvent) map[string]model.SignerRecord {
	if len(ev.Signers) == 0 {
		return nil
	}
	out := make(map[string]model.SignerRecord, len(ev.Signers))
	for _, sg := range ev.Signers {
		if sg.Email == "" {
			continue
		}
		out[sg.Email] = model.SignerRecord{
			Email:          sg.Email,
			Name:           sg.Name,
			StatusCode:     sg.StatusCode,
			SignedAt:       sg.SignedAt,
			LastViewedAt:   sg.LastViewedAt,
			LastRemindedAt: sg.LastRemindedAt,
			Error:          sg.Error,
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// signedAt picks the completion timestamp: the latest per-signer signed_at,
// falling back to the event time.
func signedAt(ev *model.InboundSignatureEvent) *time.Time {
	var latest *time.Time
	for _, sg := range ev.Signers {
		if sg.SignedAt != nil && (latest == nil || sg.SignedAt.After(*latest)) {
			latest = sg.SignedAt
		}
	}
	if latest == nil {
		return &ev.EventTime
	}
	return latest
}

// recipient picks the audit recipient: the requested signer if known,
// otherwise the first signer on the event.
func recipient(doc *model.Document, ev *model.InboundSignatureEvent) string {
	if doc.Metadata.SignerEmail != "" {
		return doc.Metadata.SignerEmail
	}
	if len(ev.Signers) > 0 {
		return ev.Signers[0].Email
	}
	return ""
}

// declineReason extracts the first non-empty signer error, if any.
func declineReason(ev *model.InboundSignatureEvent) string {
	for _, sg := range ev.Signers {
		if sg.Error != "" {
			return sg.Error
		}
	}
	return ""
}
