package handler

import (
	"strings"

	dErrors "scholarhub/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /accounts.
type RegisterRequest struct {
	ExternalID     uint64 `json:"external_id"`
	Handle         string `json:"handle"`
	IntegrityProof string `json:"integrity_proof"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if r.ExternalID == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "external_id is required")
	}
	r.Handle = strings.TrimSpace(r.Handle)
	if r.Handle == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "handle is required")
	}
	r.IntegrityProof = strings.TrimSpace(r.IntegrityProof)
	if r.IntegrityProof == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "integrity_proof is required")
	}
	if len(r.IntegrityProof) > 128 {
		return dErrors.New(dErrors.CodeInvalidInput, "integrity_proof must be at most 128 characters")
	}
	return nil
}
