// Package httpapi exposes the service over HTTP: the provider-facing webhook
// endpoint and the portal-facing signature API.
package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/peoplelane/esign/internal/service"
)

// Server holds the HTTP handler dependencies.
type Server struct {
	signatures    *service.SignatureService
	events        *service.EventService
	webhookSecret []byte
	log           *zap.Logger
}

// NewServer wires the handlers. webhookSecret authenticates inbound provider
// callbacks; it must never appear in logs.
func NewServer(signatures *service.SignatureService, events *service.EventService, webhookSecret []byte, log *zap.Logger) *Server {
	return &Server{
		signatures:    signatures,
		events:        events,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

// Routes builds the full handler chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /webhooks/esign", s.handleWebhook)

	mux.HandleFunc("POST /api/v1/signatures/request", s.handleRequestSignature)
	mux.HandleFunc("GET /api/v1/signatures/status", s.handleCheckStatus)
	mux.HandleFunc("POST /api/v1/signatures/cancel", s.handleCancel)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return Recover(s.log)(Logging(s.log)(mux))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
