package domain

import (
	"fmt"
	"time"
)

// TargetAudience is the role partition a content item is visible to.
type TargetAudience string

const (
	AudienceAll         TargetAudience = "ALL"
	AudienceUsers       TargetAudience = "USERS"
	AudienceLabour      TargetAudience = "LABOUR"
	AudienceContractors TargetAudience = "CONTRACTORS"
)

func ParseTargetAudience(s string) (TargetAudience, error) {
	switch TargetAudience(s) {
	case AudienceAll, AudienceUsers, AudienceLabour, AudienceContractors:
		return TargetAudience(s), nil
	}
	return "", fmt.Errorf("unknown target audience %q: %w", s, ErrBadRequest)
}

// ContentKind distinguishes broadcasts (admin-published) from job listings
// (contractor-published). Both share the targeted-item shape.
type ContentKind string

const (
	KindBroadcast  ContentKind = "broadcast"
	KindJobListing ContentKind = "job_listing"
)

// ContentItem is a targeted piece of content. It expires by time (ExpiresAt),
// never by deletion; Deactivate terminates it early by flipping Active.
type ContentItem struct {
	ItemID         string         `json:"id" dynamodbav:"item_id"`
	Kind           ContentKind    `json:"kind" dynamodbav:"kind"`
	Title          string         `json:"title" dynamodbav:"title"`
	Message        string         `json:"message" dynamodbav:"message"`
	TargetAudience TargetAudience `json:"target_audience" dynamodbav:"target_audience"`
	Priority       int            `json:"priority" dynamodbav:"priority"`
	Active         bool           `json:"active" dynamodbav:"active"`
	CreatedBy      string         `json:"created_by" dynamodbav:"created_by"` // publisher entity key
	CreatedAt      time.Time      `json:"created" dynamodbav:"created_at"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty" dynamodbav:"-"`
	// ExpiresAtUnix mirrors ExpiresAt as a Unix timestamp so DynamoDB TTL can reap
	// long-expired rows. Zero when the item never expires.
	ExpiresAtUnix int64 `json:"-" dynamodbav:"expires_at"`
}

// SyncExpiry copies ExpiresAt into its Unix mirror before a write.
func (c *ContentItem) SyncExpiry() {
	if c.ExpiresAt != nil {
		c.ExpiresAtUnix = c.ExpiresAt.Unix()
	} else {
		c.ExpiresAtUnix = 0
	}
}

// HydrateExpiry restores ExpiresAt from its Unix mirror after a read.
func (c *ContentItem) HydrateExpiry() {
	if c.ExpiresAtUnix > 0 {
		t := time.Unix(c.ExpiresAtUnix, 0).UTC()
		c.ExpiresAt = &t
	} else {
		c.ExpiresAt = nil
	}
}

// PublishContentRequest is the payload for both broadcasts and job listings.
type PublishContentRequest struct {
	Title          string     `json:"title" validate:"required"`
	Message        string     `json:"message" validate:"required"`
	TargetAudience string     `json:"target_audience" validate:"required"`
	Priority       int        `json:"priority" validate:"gte=0,lte=10"`
	ExpiresAt      *time.Time `json:"expires_at"`
}
