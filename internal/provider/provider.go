// Package provider is the client side of the external signing service: it
// creates and cancels signature requests. Webhook callbacks arrive through
// internal/server/httpapi, not here.
package provider

import "context"

// CreateRequest is everything the provider needs to issue one signature
// invitation for one signer.
type CreateRequest struct {
	DocumentID  string `json:"document_id"`
	Title       string `json:"title"`
	SignerEmail string `json:"signer_email"`
	SignerName  string `json:"signer_name"`
	Subject     string `json:"subject,omitempty"`
	Message     string `json:"message,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// CreateResult is the provider's handle for a created request.
type CreateResult struct {
	RequestID  string `json:"signature_request_id"`
	SigningURL string `json:"signing_url"`
}

// Client is the outbound provider contract consumed by the orchestrator.
type Client interface {
	// CreateSignatureRequest registers a document for signature and returns
	// the request id and the signer-facing URL.
	CreateSignatureRequest(ctx context.Context, req CreateRequest) (*CreateResult, error)

	// CancelSignatureRequest withdraws an outstanding request. Cancelling a
	// request the provider no longer knows is not an error.
	CancelSignatureRequest(ctx context.Context, requestID string) error
}
