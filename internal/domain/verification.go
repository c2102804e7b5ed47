package domain

import (
	"fmt"
	"time"
)

// RequestStatus is the review state of a verification request.
// Pending is the only non-terminal state; approved and rejected are final.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func ParseDecision(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case RequestApproved, RequestRejected:
		return RequestStatus(s), nil
	}
	return "", fmt.Errorf("decision must be approved or rejected, got %q: %w", s, ErrBadRequest)
}

// SubmittedDocument is one KYC document attached to a request. The blob itself
// lives in object storage; only the returned URL is kept here.
type SubmittedDocument struct {
	Type string `json:"type" dynamodbav:"type"` // e.g. "national_id", "trade_license"
	URL  string `json:"url" dynamodbav:"url"`
}

// VerificationRequest is a KYC submission moving through review.
// At most one pending request exists per (entity_type, entity_id); the storage
// layer enforces that with a conditional write, not application logic.
// Requests are retained indefinitely for audit and never transition out of a
// terminal state; a rejected entity retries with a brand-new request.
type VerificationRequest struct {
	RequestID  string              `json:"id" dynamodbav:"request_id"`
	EntityType EntityType          `json:"entity_type" dynamodbav:"entity_type"`
	EntityID   string              `json:"entity_id" dynamodbav:"entity_id"`
	EntityKey  string              `json:"-" dynamodbav:"entity_key"`
	Documents  []SubmittedDocument `json:"documents" dynamodbav:"documents"`
	Status     RequestStatus       `json:"status" dynamodbav:"status"`
	Notes      string              `json:"notes,omitempty" dynamodbav:"notes"`
	DecidedBy  *string             `json:"decided_by,omitempty" dynamodbav:"decided_by"`
	DecidedAt  *time.Time          `json:"decided_at,omitempty" dynamodbav:"decided_at"`
	CreatedAt  time.Time           `json:"created" dynamodbav:"created_at"`
}

// DocumentUpload is one base64-encoded document in a submission.
type DocumentUpload struct {
	Type     string `json:"type" validate:"required"`
	FileName string `json:"file_name" validate:"required"`
	Base64   string `json:"base64" validate:"required"`
}

// SubmitVerificationRequest is the submission payload.
type SubmitVerificationRequest struct {
	Documents []DocumentUpload `json:"documents" validate:"required,min=1,dive"`
}

// DecideVerificationRequest is the admin decision payload.
type DecideVerificationRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Notes    string `json:"notes"`
}
