package models

import (
	"time"

	"github.com/google/uuid"
)

// ProposalDocument is a composed proposal for one opportunity. Body is the
// authoritative text: once edited it replaces the composed template.
type ProposalDocument struct {
	ID           uuid.UUID  `json:"id"`
	RFPID        string     `json:"rfp_id"`
	RFPTitle     string     `json:"rfp_title"`
	Organization string     `json:"organization"`
	SKU          string     `json:"sku"`
	Body         string     `json:"body"`
	GeneratedAt  time.Time  `json:"generated_at"`
	EditedAt     *time.Time `json:"edited_at,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

// Edited reports whether the body has been replaced by the user.
func (d ProposalDocument) Edited() bool { return d.EditedAt != nil }

// WithBody returns a copy with the body replaced and linkage kept.
func (d ProposalDocument) WithBody(body string, at time.Time) ProposalDocument {
	d.Body = body
	d.EditedAt = &at
	return d
}
