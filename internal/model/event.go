package model

import "time"

// EventKind is the closed set of webhook event categories the processor
// understands. Anything else is KindUnknown and is acknowledged and ignored
// so new provider event types never break processing.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindViewed
	KindSigned // one signer finished, request not yet complete
	KindAllSigned
	KindDeclined
	KindCanceled
	KindReassigned
	KindReminded
)

// Provider event type strings as delivered in event.event_type.
const (
	EventTypeViewed     = "signature_request_viewed"
	EventTypeSigned     = "signature_request_signed"
	EventTypeAllSigned  = "signature_request_all_signed"
	EventTypeDeclined   = "signature_request_declined"
	EventTypeCanceled   = "signature_request_canceled"
	EventTypeReassigned = "signature_request_reassigned"
	EventTypeReminded   = "signature_request_remind"
)

// KindOf maps a provider event type string to its EventKind.
func KindOf(eventType string) EventKind {
	switch eventType {
	case EventTypeViewed:
		return KindViewed
	case EventTypeSigned:
		return KindSigned
	case EventTypeAllSigned:
		return KindAllSigned
	case EventTypeDeclined:
		return KindDeclined
	case EventTypeCanceled:
		return KindCanceled
	case EventTypeReassigned:
		return KindReassigned
	case EventTypeReminded:
		return KindReminded
	}
	return KindUnknown
}

// EventSigner is one signer's state as reported inside a webhook event.
type EventSigner struct {
	Email          string
	Name           string
	StatusCode     string
	SignedAt       *time.Time
	LastViewedAt   *time.Time
	LastRemindedAt *time.Time
	Error          string
}

// InboundSignatureEvent is an authenticated webhook event in domain form.
type InboundSignatureEvent struct {
	EventType    string
	EventTime    time.Time
	RequestID    string
	Signers      []EventSigner
	FinalCopyURI string
}

// Kind returns the event's category.
func (e *InboundSignatureEvent) Kind() EventKind { return KindOf(e.EventType) }
