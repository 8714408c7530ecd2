package handler

import (
	"strings"

	dErrors "scholarhub/pkg/domain-errors"
)

// VerifyRequest is the HTTP request body for POST /verifications.
type VerifyRequest struct {
	Handle     string `json:"handle"`
	ExternalID uint64 `json:"external_id"`
	Eligible   bool   `json:"eligible"`
	Reason     string `json:"reason"`
}

// Validate validates and normalizes the request. The reason goes on the
// public record verbatim, so a length cap is the only guard applied here.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	r.Handle = strings.TrimSpace(r.Handle)
	if r.Handle == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "handle is required")
	}
	if r.ExternalID == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "external_id is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	if len(r.Reason) > 500 {
		return dErrors.New(dErrors.CodeInvalidInput, "reason must be at most 500 characters")
	}
	return nil
}

// BatchVerifyRequest is the HTTP request body for POST /verifications/batch.
type BatchVerifyRequest struct {
	Decisions []VerifyRequest `json:"decisions"`
}

const maxBatchSize = 100

// Validate validates the batch envelope and every item in it.
func (r *BatchVerifyRequest) Validate() error {
	if r == nil || len(r.Decisions) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "decisions are required")
	}
	if len(r.Decisions) > maxBatchSize {
		return dErrors.New(dErrors.CodeInvalidInput, "batch exceeds 100 decisions")
	}
	for i := range r.Decisions {
		if err := r.Decisions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
