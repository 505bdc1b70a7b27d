// Package convert maps provider wire payloads to domain types.
package convert

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/peoplelane/esign/internal/model"
)

// Callback is a parsed webhook payload. RawEventTime keeps the exact string
// the provider signed so the signature can be verified byte-for-byte before
// anything else in the payload is trusted.
type Callback struct {
	RawEventTime string
	EventType    string
	EventHash    string // signature copy carried in the body
	Event        model.InboundSignatureEvent
}

// --- wire structures ---

type callbackPayload struct {
	Event            wireEvent            `json:"event"`
	SignatureRequest wireSignatureRequest `json:"signature_request"`
}

type wireEvent struct {
	EventTime string `json:"event_time"` // unix seconds, as a string
	EventType string `json:"event_type"`
	EventHash string `json:"event_hash"`
}

type wireSignatureRequest struct {
	SignatureRequestID string       `json:"signature_request_id"`
	FinalCopyURI       string       `json:"final_copy_uri"`
	Signatures         []wireSigner `json:"signatures"`
}

type wireSigner struct {
	SignerEmailAddress string `json:"signer_email_address"`
	SignerName         string `json:"signer_name"`
	StatusCode         string `json:"status_code"`
	SignedAt           *int64 `json:"signed_at"`
	LastViewedAt       *int64 `json:"last_viewed_at"`
	LastRemindedAt     *int64 `json:"last_reminded_at"`
	Error              string `json:"error"`
}

// ParseCallback decodes a provider callback body. A payload that cannot be
// decoded, or that lacks the fields every event carries, is malformed;
// unknown event *types* are not an error here (the processor ignores them).
func ParseCallback(data []byte) (*Callback, error) {
	var p callbackPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}
	if p.Event.EventTime == "" || p.Event.EventType == "" {
		return nil, fmt.Errorf("callback missing event_time/event_type")
	}
	sec, err := strconv.ParseInt(p.Event.EventTime, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad event_time %q: %w", p.Event.EventTime, err)
	}
	if p.SignatureRequest.SignatureRequestID == "" {
		return nil, fmt.Errorf("callback missing signature_request_id")
	}

	ev := model.InboundSignatureEvent{
		EventType:    p.Event.EventType,
		EventTime:    time.Unix(sec, 0).UTC(),
		RequestID:    p.SignatureRequest.SignatureRequestID,
		FinalCopyURI: p.SignatureRequest.FinalCopyURI,
	}
	for _, s := range p.SignatureRequest.Signatures {
		ev.Signers = append(ev.Signers, model.EventSigner{
			Email:          s.SignerEmailAddress,
			Name:           s.SignerName,
			StatusCode:     s.StatusCode,
			SignedAt:       unixPtr(s.SignedAt),
			LastViewedAt:   unixPtr(s.LastViewedAt),
			LastRemindedAt: unixPtr(s.LastRemindedAt),
			Error:          s.Error,
		})
	}

	return &Callback{
		RawEventTime: p.Event.EventTime,
		EventType:    p.Event.EventType,
		EventHash:    p.Event.EventHash,
		Event:        ev,
	}, nil
}

func unixPtr(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}
