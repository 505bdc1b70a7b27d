// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// SignatureStatus is the signature lifecycle state of a document.
type SignatureStatus string

const (
	StatusNotSent   SignatureStatus = "not_sent"
	StatusPending   SignatureStatus = "pending"
	StatusSigned    SignatureStatus = "signed"
	StatusDeclined  SignatureStatus = "declined"
	StatusCancelled SignatureStatus = "cancelled"
	StatusExpired   SignatureStatus = "expired"
)

// Terminal reports whether no webhook-driven transition may leave this state.
// Only a fresh request issued by the orchestrator re-enters the lifecycle.
func (s SignatureStatus) Terminal() bool {
	switch s {
	case StatusSigned, StatusDeclined, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Requestable reports whether a new signature request may be issued from this state.
func (s SignatureStatus) Requestable() bool {
	switch s {
	case StatusNotSent, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}

// SignerRecord is the per-signer slice of signature metadata.
type SignerRecord struct {
	Email          string     `json:"email"`
	Name           string     `json:"name,omitempty"`
	StatusCode     string     `json:"status_code,omitempty"`
	SignedAt       *time.Time `json:"signed_at,omitempty"`
	LastViewedAt   *time.Time `json:"last_viewed_at,omitempty"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// SignatureMetadata is the structured, additive record of everything observed
// about a document's signature request. Fields are only ever set, never
// cleared; each lifecycle transition merges new values via Merge.
type SignatureMetadata struct {
	RequestedBy   string     `json:"requested_by,omitempty"`
	SignerEmail   string     `json:"signer_email,omitempty"`
	SignerName    string     `json:"signer_name,omitempty"`
	SigningURL    string     `json:"signing_url,omitempty"`
	RequestedAt   *time.Time `json:"requested_at,omitempty"`
	LastViewedAt  *time.Time `json:"last_viewed_at,omitempty"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	DeclinedAt    *time.Time `json:"declined_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	DeclineReason string     `json:"decline_reason,omitempty"`
	FinalCopyURI  string     `json:"final_copy_uri,omitempty"`

	// Signers holds per-signer sub-records keyed by email.
	Signers map[string]SignerRecord `json:"signers,omitempty"`

	// LastEventType/LastEventAt record the last webhook event applied to the
	// document; together they are the replay-detection key.
	LastEventType string     `json:"last_event_type,omitempty"`
	LastEventAt   *time.Time `json:"last_event_at,omitempty"`
}

// Merge applies patch on top of m. Non-empty patch fields win; empty patch
// fields leave the existing value untouched, so history is never erased.
// Signer sub-records merge field-by-field under the same rule.
func (m *SignatureMetadata) Merge(patch SignatureMetadata) {
	if patch.RequestedBy != "" {
		m.RequestedBy = patch.RequestedBy
	}
	if patch.SignerEmail != "" {
		m.SignerEmail = patch.SignerEmail
	}
	if patch.SignerName != "" {
		m.SignerName = patch.SignerName
	}
	if patch.SigningURL != "" {
		m.SigningURL = patch.SigningURL
	}
	if patch.RequestedAt != nil {
		m.RequestedAt = patch.RequestedAt
	}
	if patch.LastViewedAt != nil {
		m.LastViewedAt = patch.LastViewedAt
	}
	if patch.SignedAt != nil {
		m.SignedAt = patch.SignedAt
	}
	if patch.DeclinedAt != nil {
		m.DeclinedAt = patch.DeclinedAt
	}
	if patch.CancelledAt != nil {
		m.CancelledAt = patch.CancelledAt
	}
	if patch.DeclineReason != "" {
		m.DeclineReason = patch.DeclineReason
	}
	if patch.FinalCopyURI != "" {
		m.FinalCopyURI = patch.FinalCopyURI
	}
	if patch.LastEventType != "" {
		m.LastEventType = patch.LastEventType
	}
	if patch.LastEventAt != nil {
		m.LastEventAt = patch.LastEventAt
	}
	for email, sr := range patch.Signers {
		if m.Signers == nil {
			m.Signers = make(map[string]SignerRecord, len(patch.Signers))
		}
		cur := m.Signers[email]
		if cur.Email == "" {
			cur.Email = email
		}
		if sr.Name != "" {
			cur.Name = sr.Name
		}
		if sr.StatusCode != "" {
			cur.StatusCode = sr.StatusCode
		}
		if sr.SignedAt != nil {
			cur.SignedAt = sr.SignedAt
		}
		if sr.LastViewedAt != nil {
			cur.LastViewedAt = sr.LastViewedAt
		}
		if sr.LastRemindedAt != nil {
			cur.LastRemindedAt = sr.LastRemindedAt
		}
		if sr.Error != "" {
			cur.Error = sr.Error
		}
		m.Signers[email] = cur
	}
}

// Document is the signature-bearing slice of a portal document. The portal
// owns the rest of the row; this service reads and writes only these fields.
type Document struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	Title              string
	SignatureRequired  bool
	SignatureStatus    SignatureStatus
	SignatureRequestID string // empty until a request is issued
	Metadata           SignatureMetadata
	Ver                int64 // monotonically increasing version (>= 0)
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Audit record types emitted by this service.
const (
	AuditSignatureRequest   = "signature_request"
	AuditSignatureCompleted = "signature_completed"
)

// AuditRecord is an append-only communication/audit trail entry.
type AuditRecord struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	RecordType string
	Recipient  string // email the communication was addressed to
	Subject    string
	Body       string
	CreatedAt  time.Time
}

// NotificationRecord is an append-only in-portal notification to a user.
type NotificationRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	DocumentID uuid.UUID
	Subject    string
	Body       string
	CreatedAt  time.Time
}
