package httpapi

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/peoplelane/esign/internal/convert"
	"github.com/peoplelane/esign/internal/service"
	"github.com/peoplelane/esign/internal/webhookauth"
)

// signatureHeader carries the provider's HMAC; older provider configurations
// send it only inside the payload as event_hash.
const signatureHeader = "X-Esign-Event-Signature"

const maxWebhookBody = 1 << 20

type webhookAck struct {
	Outcome service.ProcessOutcome `json:"outcome"`
	Status  string                 `json:"status,omitempty"`
}

// handleWebhook receives signing provider callbacks.
//
// Responses: 400 for bodies that cannot be parsed, 401 for a missing or
// invalid signature, 200 for everything the processor handled (including
// orphaned, duplicate and ignored events), 500 only for internal faults.
// The provider retries anything but 200.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	cb, err := convert.ParseCallback(body)
	if err != nil {
		s.log.Info("malformed webhook payload", zap.Error(err))
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	sig := r.Header.Get(signatureHeader)
	if sig == "" {
		sig = cb.EventHash
	}
	if !webhookauth.Verify(cb.RawEventTime, cb.EventType, sig, s.webhookSecret) {
		s.log.Warn("webhook signature rejected",
			zap.String("event_type", cb.EventType),
			zap.String("request_id", cb.Event.RequestID),
		)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	res, err := s.events.Process(r.Context(), &cb.Event)
	if err != nil {
		s.log.Error("webhook processing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, webhookAck{Outcome: res.Outcome, Status: string(res.Status)})
}
