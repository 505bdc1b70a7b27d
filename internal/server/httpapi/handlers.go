package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofrs/uuid/v5"

	"github.com/peoplelane/esign/internal/errs"
	"github.com/peoplelane/esign/internal/service"
)

type requestSignatureBody struct {
	DocumentID  string `json:"document_id"`
	SignerEmail string `json:"signer_email"`
	SignerName  string `json:"signer_name"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	RequestedBy string `json:"requested_by"`
}

func (s *Server) handleRequestSignature(w http.ResponseWriter, r *http.Request) {
	var body requestSignatureBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json")
		return
	}
	docID, err := uuid.FromString(body.DocumentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad document_id")
		return
	}

	res, err := s.signatures.RequestSignature(r.Context(), service.RequestSignatureInput{
		DocumentID:  docID,
		SignerEmail: body.SignerEmail,
		SignerName:  body.SignerName,
		Subject:     body.Subject,
		Message:     body.Message,
		RequestedBy: body.RequestedBy,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"request_id":  res.RequestID,
		"signing_url": res.SigningURL,
	})
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	docID, err := uuid.FromString(r.URL.Query().Get("document_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad document_id")
		return
	}

	info, err := s.signatures.CheckStatus(r.Context(), docID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type cancelBody struct {
	DocumentID string `json:"document_id"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body cancelBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json")
		return
	}
	docID, err := uuid.FromString(body.DocumentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad document_id")
		return
	}

	if err := s.signatures.Cancel(r.Context(), docID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, errs.ErrPrecondition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
