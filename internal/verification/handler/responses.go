package handler

import (
	"time"

	"scholarhub/internal/verification/models"
	dErrors "scholarhub/pkg/domain-errors"
)

// RecordResponse is the HTTP representation of one verification record.
type RecordResponse struct {
	Handle     string    `json:"handle"`
	ExternalID uint64    `json:"external_id"`
	Eligible   bool      `json:"eligible"`
	Reason     string    `json:"reason"`
	Verifier   string    `json:"verifier"`
	VerifiedAt time.Time `json:"verified_at"`
}

func FromRecord(record *models.Record) RecordResponse {
	return RecordResponse{
		Handle:     record.Handle,
		ExternalID: record.ExternalID,
		Eligible:   record.Eligible,
		Reason:     record.Reason,
		Verifier:   record.Verifier,
		VerifiedAt: record.VerifiedAt,
	}
}

// BatchItemResponse reports the outcome of one batch decision.
type BatchItemResponse struct {
	Handle string          `json:"handle"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Record *RecordResponse `json:"record,omitempty"`
}

// BatchResponse is the HTTP response for POST /verifications/batch.
type BatchResponse struct {
	Results []BatchItemResponse `json:"results"`
}

func batchItem(handle string, record *models.Record, err error) BatchItemResponse {
	item := BatchItemResponse{Handle: handle, OK: err == nil}
	if err != nil {
		item.Error = string(dErrors.CodeOf(err))
		return item
	}
	response := FromRecord(record)
	item.Record = &response
	return item
}
